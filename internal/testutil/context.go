package testutil

import (
	"context"
	"testing"
	"time"
)

// AnalysisTimeout: верхняя граница на одну сборку анализа карты в тестах.
const AnalysisTimeout = 30 * time.Second

// ContextWithTimeout создаёт context с timeout и автоматически отменяет его при завершении теста.
func ContextWithTimeout(tb testing.TB, duration time.Duration) context.Context {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	tb.Cleanup(cancel)

	return ctx
}

// CancelledContext возвращает уже отменённый context (для проверки прерывания анализа).
func CancelledContext(tb testing.TB) context.Context {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	return ctx
}
