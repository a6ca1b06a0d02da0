//go:build !windows && !darwin && !linux

package input

import (
	"context"
	"time"
)

type unsupportedInjector struct{}

func newPlatform() Injector { return unsupportedInjector{} }

func (unsupportedInjector) Copy(context.Context, time.Duration) error { return ErrUnsupported }

func (unsupportedInjector) Paste(context.Context) error { return ErrUnsupported }
