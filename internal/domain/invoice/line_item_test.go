package invoice

import (
	"strings"
	"testing"

	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineItem(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		li, err := NewLineItem("inv_line_1", "inv_1", "consulting hours",
			decimal.NewFromInt(2), decimal.RequireFromString("99.99"))
		require.NoError(t, err)
		assert.Equal(t, "inv_1", li.InvoiceID)
		assert.Equal(t, "199.98", li.Total().String())
	})

	t.Run("empty description", func(t *testing.T) {
		_, err := NewLineItem("inv_line_1", "inv_1", "   ",
			decimal.NewFromInt(1), decimal.NewFromInt(10))
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("description too long", func(t *testing.T) {
		_, err := NewLineItem("inv_line_1", "inv_1", strings.Repeat("x", LineItemDescriptionMaxLength+1),
			decimal.NewFromInt(1), decimal.NewFromInt(10))
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		_, err := NewLineItem("inv_line_1", "inv_1", "widgets",
			decimal.Zero, decimal.NewFromInt(10))
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		_, err := NewLineItem("inv_line_1", "inv_1", "widgets",
			decimal.NewFromInt(-1), decimal.NewFromInt(10))
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("zero unit price is a free item", func(t *testing.T) {
		li, err := NewLineItem("inv_line_1", "inv_1", "free sample",
			decimal.NewFromInt(1), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, li.Total().IsZero())
	})

	t.Run("negative unit price rejected", func(t *testing.T) {
		_, err := NewLineItem("inv_line_1", "inv_1", "widgets",
			decimal.NewFromInt(1), decimal.NewFromInt(-5))
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestLineItemUpdate(t *testing.T) {
	newItem := func(t *testing.T) *LineItem {
		li, err := NewLineItem("inv_line_1", "inv_1", "widgets",
			decimal.NewFromInt(2), decimal.NewFromInt(100))
		require.NoError(t, err)
		return li
	}

	t.Run("updates all fields", func(t *testing.T) {
		li := newItem(t)
		err := li.Update("gadgets", decimal.RequireFromString("1.5"), decimal.RequireFromString("10.10"))
		require.NoError(t, err)
		assert.Equal(t, "gadgets", li.Description)
		assert.Equal(t, "15.15", li.Total().String())
	})

	t.Run("failed update leaves item untouched", func(t *testing.T) {
		li := newItem(t)
		err := li.Update("gadgets", decimal.Zero, decimal.NewFromInt(10))
		require.Error(t, err)
		assert.Equal(t, "widgets", li.Description)
		assert.Equal(t, "200", li.Total().String())
	})

	t.Run("id and invoice id are immutable", func(t *testing.T) {
		li := newItem(t)
		require.NoError(t, li.Update("gadgets", decimal.NewFromInt(1), decimal.NewFromInt(1)))
		assert.Equal(t, "inv_line_1", li.ID)
		assert.Equal(t, "inv_1", li.InvoiceID)
	})
}

func TestLineItemTotal(t *testing.T) {
	// Decimal arithmetic must be exact, no float drift
	li, err := NewLineItem("inv_line_1", "inv_1", "widgets",
		decimal.RequireFromString("0.1"), decimal.RequireFromString("0.3"))
	require.NoError(t, err)
	assert.Equal(t, "0.03", li.Total().String())
}
