package textcheck

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(issues []Issue) (spelling, grammar int) {
	for _, is := range issues {
		if is.IsSpelling() {
			spelling++
		} else {
			grammar++
		}
	}
	return
}

func rulesOf(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Rule)
	}
	return out
}

func TestRuleChecker_Check(t *testing.T) {
	c, err := NewRuleChecker()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("clean text", func(t *testing.T) {
		issues, err := c.Check(ctx, "Hello Maria, I have reset your password. It should work now.")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("empty text", func(t *testing.T) {
		issues, err := c.Check(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("misspellings", func(t *testing.T) {
		issues, err := c.Check(ctx, "We recieved your adress and will definately reply.")
		require.NoError(t, err)

		sp, gr := count(issues)
		assert.Equal(t, 3, sp)
		assert.Equal(t, 0, gr)
		assert.Equal(t, []string{"received"}, issues[0].Replacements)
	})

	t.Run("misspellings across lines", func(t *testing.T) {
		text := "Hi Ana,\nWe will call you tommorow.\nBeleive me, it is fixed."
		issues, err := c.Check(ctx, text)
		require.NoError(t, err)
		require.Len(t, issues, 2)

		assert.Equal(t, "tommorow", text[issues[0].Offset:issues[0].Offset+issues[0].Length])
		assert.Equal(t, []string{"tomorrow"}, issues[0].Replacements)
		assert.Equal(t, "Beleive", text[issues[1].Offset:issues[1].Offset+issues[1].Length])
		assert.Equal(t, []string{"Believe"}, issues[1].Replacements)
		for _, is := range issues {
			assert.Equal(t, "MISSPELLING", is.Rule)
		}
	})

	t.Run("grammar rules", func(t *testing.T) {
		issues, err := c.Check(ctx, "You could of told us. Their are a few steps.")
		require.NoError(t, err)

		assert.Contains(t, rulesOf(issues), "COULD_OF")
		assert.Contains(t, rulesOf(issues), "THEIR_ARE")
		sp, _ := count(issues)
		assert.Zero(t, sp)
	})

	t.Run("article exceptions", func(t *testing.T) {
		issues, err := c.Check(ctx, "This is a unique case for a user with an hour left.")
		require.NoError(t, err)
		assert.Empty(t, issues)

		issues, err = c.Check(ctx, "Please open a issue.")
		require.NoError(t, err)
		assert.Equal(t, []string{"A_BEFORE_VOWEL"}, rulesOf(issues))
	})

	t.Run("repeated word", func(t *testing.T) {
		issues, err := c.Check(ctx, "Please check the the settings.")
		require.NoError(t, err)
		assert.Equal(t, []string{"WORD_REPEAT"}, rulesOf(issues))
	})

	t.Run("lowercase pronoun", func(t *testing.T) {
		issues, err := c.Check(ctx, "Yes, i checked it.")
		require.NoError(t, err)
		assert.Equal(t, []string{"LOWERCASE_I"}, rulesOf(issues))
	})

	t.Run("abbreviations do not start sentences", func(t *testing.T) {
		issues, err := c.Check(ctx, "Clear caches, e.g. browser data.")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("issues ordered by offset", func(t *testing.T) {
		issues, err := c.Check(ctx, "Teh fix works!! We recieved it.")
		require.NoError(t, err)
		for i := 1; i < len(issues); i++ {
			assert.LessOrEqual(t, issues[i-1].Offset, issues[i].Offset)
		}
	})

	t.Run("binary garbage", func(t *testing.T) {
		_, err := c.Check(ctx, "\x00\xff\xfe\x01 \x7f")
		assert.NoError(t, err)
	})
}

func TestRuleChecker_Close(t *testing.T) {
	c, err := NewRuleChecker()
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Check(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRuleChecker_CanceledContext(t *testing.T) {
	c, err := NewRuleChecker()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Check(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRuleCheckerFromYAML(t *testing.T) {
	t.Run("invalid regex", func(t *testing.T) {
		_, err := NewRuleCheckerFromYAML([]byte("grammar:\n  - id: BAD\n    pattern: '(x'\n"))
		assert.Error(t, err)
	})

	t.Run("custom dictionary", func(t *testing.T) {
		c, err := NewRuleCheckerFromYAML([]byte("version: t\nmisspellings:\n  Colour: color\n"))
		require.NoError(t, err)
		assert.Equal(t, "t", c.Version())

		issues, err := c.Check(context.Background(), "Pick a colour")
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, CategorySpelling, issues[0].Category)
	})
}

func TestRuleChecker_Concurrent(t *testing.T) {
	c, err := NewRuleChecker()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issues, err := c.Check(context.Background(), "We recieved teh ticket.")
			assert.NoError(t, err)
			assert.Len(t, issues, 2)
		}()
	}
	wg.Wait()
}
