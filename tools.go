//go:build tools

package tools

import (
	_ "mvdan.cc/gofumpt"
)
