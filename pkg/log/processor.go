package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// LoggerTagProcessor injects loggers into fields tagged `fabric:"logger"`
// or `fabric:"logger:<component>"`. The component form yields a logger
// scoped with Named, e.g. `fabric:"logger:ingest"`.
type LoggerTagProcessor struct{}

func NewLoggerTagProcessor() *LoggerTagProcessor {
	return &LoggerTagProcessor{}
}

// GetPriority runs ahead of the container's default inject processor (0).
func (ltp *LoggerTagProcessor) GetPriority() int {
	return 50
}

func (ltp *LoggerTagProcessor) CanProcess(value string) bool {
	_, ok := componentName(value)
	return ok
}

func (ltp *LoggerTagProcessor) Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("no LoggerService registered to inject into field '%s'", field.Name)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved service for field '%s' is %T, not a LoggerService", field.Name, resolved)
	}

	if name, _ := componentName(value); name != "" {
		return base.Named(name), nil
	}
	return base, nil
}

// componentName splits a logger tag into its optional component name.
func componentName(value string) (string, bool) {
	head, tail, found := strings.Cut(strings.TrimSpace(value), ":")
	if !strings.EqualFold(head, "logger") {
		return "", false
	}
	if !found {
		return "", true
	}
	return strings.TrimSpace(tail), true
}
