package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestCounterAddAndReset(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1000, c.ReadAndReset())
	require.EqualValues(t, 0, c.ReadAndReset())
}

func TestMonitorReportsAndStopsOnCancel(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	var c Counter
	c.Add(42)

	m := &Monitor{Counter: &c, Interval: 10 * time.Millisecond, Log: log}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
