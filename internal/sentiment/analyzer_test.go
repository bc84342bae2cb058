package sentiment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaderAnalyzer_Polarity(t *testing.T) {
	a := NewVaderAnalyzer()
	ctx := context.Background()

	polarity := func(t *testing.T, text string) float64 {
		t.Helper()
		p, err := a.Polarity(ctx, text)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, -1.0)
		assert.LessOrEqual(t, p, 1.0)
		return p
	}

	t.Run("blank text is neutral", func(t *testing.T) {
		assert.Equal(t, 0.0, polarity(t, ""))
		assert.Equal(t, 0.0, polarity(t, " \n\t"))
	})

	t.Run("no sentiment words", func(t *testing.T) {
		assert.Equal(t, 0.0, polarity(t, "The invoice number is 4411."))
	})

	t.Run("positive", func(t *testing.T) {
		assert.Greater(t, polarity(t, "Great news, the team was very helpful and I am happy with the result."), 0.5)
	})

	t.Run("negative", func(t *testing.T) {
		assert.Less(t, polarity(t, "This is a terrible, awful experience and I hate it."), -0.5)
	})

	t.Run("negation flips", func(t *testing.T) {
		assert.Greater(t, polarity(t, "The update is good."), 0.0)
		assert.Less(t, polarity(t, "The update is not good."), 0.0)
	})

	t.Run("booster intensifies", func(t *testing.T) {
		assert.Greater(t, polarity(t, "The team was extremely helpful."), polarity(t, "The team was helpful."))
	})

	t.Run("deterministic", func(t *testing.T) {
		text := "I am sorry for the delay, but we are happy to help."
		assert.Equal(t, polarity(t, text), polarity(t, text))
	})
}

func TestVaderAnalyzer_Close(t *testing.T) {
	a := NewVaderAnalyzer()
	require.NoError(t, a.Close())

	_, err := a.Polarity(context.Background(), "good")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestVaderAnalyzer_CanceledContext(t *testing.T) {
	a := NewVaderAnalyzer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Polarity(ctx, "good")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVaderAnalyzer_Concurrent(t *testing.T) {
	a := NewVaderAnalyzer()
	want, err := a.Polarity(context.Background(), "Thanks, that was really helpful!")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Polarity(context.Background(), "Thanks, that was really helpful!")
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
