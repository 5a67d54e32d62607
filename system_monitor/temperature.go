package systemmonitor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/BenchLab/target"
	"github.com/shirou/gopsutil/v4/sensors"
)

// ErrSensorUnavailable means no CPU temperature could be read. It never leaves this package: CPUTemperature reports
// it as a missing reading.
var ErrSensorUnavailable = errors.New("temperature sensor unavailable")

const sensorTimeout = 2 * time.Second

// Sensor keys that identify a CPU package or die temperature, in order of preference.
var cpuSensorKeys = []string{"coretemp_package", "coretemp", "k10temp", "x86_pkg_temp", "cpu_thermal", "cpu", "soc"}

type TemperatureSensor struct {
	target  target.Target
	goos    string
	timeout time.Duration
	sensors func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewTemperatureSensor(t target.Target) *TemperatureSensor {
	return &TemperatureSensor{
		target:  t,
		goos:    runtime.GOOS,
		timeout: sensorTimeout,
		sensors: sensors.TemperaturesWithContext,
	}
}

// CPUTemperature returns the CPU temperature in degrees Celsius. The second return value is false when no reading
// was possible for any reason (unsupported platform, missing permission, timeout).
func (s *TemperatureSensor) CPUTemperature(ctx context.Context) (float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var celsius float64
	var err error
	if s.goos == "darwin" {
		celsius, err = s.readPowermetrics(ctx)
	} else {
		celsius, err = s.readSensors(ctx)
	}
	if err != nil {
		slog.Debug("cpu temperature unavailable", slog.String("error", err.Error()))
		return 0, false
	}
	return celsius, true
}

// CPUTemperature reads the local host's CPU temperature.
func CPUTemperature(ctx context.Context) (float64, bool) {
	return NewTemperatureSensor(target.NewLocalTarget()).CPUTemperature(ctx)
}

func (s *TemperatureSensor) readSensors(ctx context.Context) (float64, error) {
	temps, err := s.sensors(ctx)
	// gopsutil returns partial results together with a warning error when some sensors can't be read
	if len(temps) == 0 {
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSensorUnavailable, err)
		}
		return 0, ErrSensorUnavailable
	}
	return pickCPUTemperature(temps)
}

func pickCPUTemperature(temps []sensors.TemperatureStat) (float64, error) {
	for _, key := range cpuSensorKeys {
		for _, t := range temps {
			if strings.HasPrefix(strings.ToLower(t.SensorKey), key) && t.Temperature > 0 {
				return t.Temperature, nil
			}
		}
	}
	return 0, ErrSensorUnavailable
}

// readPowermetrics needs passwordless sudo; with -n sudo fails instead of prompting.
func (s *TemperatureSensor) readPowermetrics(ctx context.Context) (float64, error) {
	out, err := s.target.RunCommand(ctx, "sudo", "-n", "powermetrics", "--samplers", "smc", "-i1", "-n1")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSensorUnavailable, err)
	}
	return parsePowermetrics(out)
}

// parsePowermetrics finds a line like "CPU die temperature: 48.12 C".
func parsePowermetrics(out []byte) (float64, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "CPU die temperature") {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		celsius, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: parsing %q: %w", ErrSensorUnavailable, line, err)
		}
		return celsius, nil
	}
	return 0, ErrSensorUnavailable
}
