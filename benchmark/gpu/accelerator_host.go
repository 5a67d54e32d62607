//go:build !cuda

package gpu

const acceleratorBuild = false
