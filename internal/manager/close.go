package manager

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Close stops accepting downloads, waits for running download workers until ctx ends (then
// abandons them) and releases every loaded instance.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	pending := len(m.tasks)
	m.mu.Unlock()

	var result *multierror.Error
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, fmt.Errorf("abandoned %d download(s): %w", pending, ctx.Err()))
	}
	m.cancel()

	for id, inst := range m.instances.drain() {
		if err := inst.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", id, err))
		}
	}
	m.log.Info().Msg("manager closed")
	return result.ErrorOrNil()
}
