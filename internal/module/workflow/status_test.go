package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	t.Run("default definitions are valid", func(t *testing.T) {
		c, err := NewCatalog(DefaultStatusDefinitions())
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, c.Initial().Key)
		assert.Len(t, c.All(), 8)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := NewCatalog(nil)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		_, err := NewCatalog([]StatusDefinition{
			{ID: 1, Key: "a", Rank: 1, IsActive: true},
			{ID: 2, Key: "a", Rank: 2, IsActive: true},
		})
		assert.Error(t, err)
	})

	t.Run("rejects all-terminal catalog", func(t *testing.T) {
		_, err := NewCatalog([]StatusDefinition{
			{ID: 1, Key: "done", Rank: 1, IsTerminal: true, IsActive: true},
		})
		assert.Error(t, err)
	})

	t.Run("initial is lowest-rank active non-terminal", func(t *testing.T) {
		c, err := NewCatalog([]StatusDefinition{
			{ID: 1, Key: "draft", Rank: 5, IsActive: true},
			{ID: 2, Key: "retired", Rank: 1, IsActive: false},
			{ID: 3, Key: "open", Rank: 2, IsActive: true},
		})
		require.NoError(t, err)
		assert.Equal(t, StatusKey("open"), c.Initial().Key)
	})
}

func TestCatalog_Resolve(t *testing.T) {
	c := DefaultCatalog()

	t.Run("nil resolves to initial", func(t *testing.T) {
		def, ok := c.Resolve(nil)
		require.True(t, ok)
		assert.Equal(t, StatusProcessing, def.Key)
	})

	t.Run("known key", func(t *testing.T) {
		key := StatusShipped
		def, ok := c.Resolve(&key)
		require.True(t, ok)
		assert.Equal(t, StatusShipped, def.Key)
	})

	t.Run("unknown key", func(t *testing.T) {
		key := StatusKey("ghost")
		_, ok := c.Resolve(&key)
		assert.False(t, ok)
	})
}

func TestDefaultCatalog_Ordering(t *testing.T) {
	c := DefaultCatalog()

	var prev int
	for _, def := range c.All() {
		assert.GreaterOrEqual(t, def.Rank, prev)
		prev = def.Rank
	}

	terminal := map[StatusKey]bool{
		StatusDelivered: true,
		StatusCancelled: true,
		StatusRefunded:  true,
	}
	for _, def := range c.All() {
		assert.Equal(t, terminal[def.Key], def.IsTerminal, string(def.Key))
	}
}
