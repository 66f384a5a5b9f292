package parent

import (
	"context"
	"testing"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt/prompttest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generic(id grocy.ID, name string, group grocy.ID) grocy.Product {
	return grocy.Product{ID: id, Name: name, ProductGroupID: group, Userfields: grocy.Userfields{IsParent: "1"}}
}

func child(id grocy.ID, name string, parent grocy.ID) grocy.Product {
	return grocy.Product{ID: id, Name: name, ParentProductID: parent}
}

func inventory() []grocy.Product {
	return []grocy.Product{
		generic(1, "Butter (Generic)", 10),
		child(2, "Anchor Butter (500g)", 1),
		child(3, "Lewis Road Butter (250g)", 1),
		generic(4, "Peanut Butter (Generic)", 20),
		generic(5, "Milk (Generic)", 10),
		child(6, "Anchor Blue Top Milk (2L)", 5),
		{ID: 7, Name: "Bananas"},
	}
}

func TestIndex(t *testing.T) {
	parents := Index(inventory())
	require.Len(t, parents, 3)

	assert.Equal(t, "Butter (Generic)", parents[0].Product.Name)
	assert.Equal(t, []string{"Butter"}, parents[0].Tokens)
	assert.Len(t, parents[0].Children, 2)

	assert.Equal(t, []string{"Peanut", "Butter"}, parents[1].Tokens)
	assert.Empty(t, parents[1].Children)

	require.Len(t, parents[2].Children, 1)
	assert.Equal(t, grocy.ID(6), parents[2].Children[0].ID)
}

func TestResolveParent(t *testing.T) {
	parents := Index(inventory())

	tests := []struct {
		name     string
		product  string
		group    grocy.ID
		expected grocy.ID
	}{
		{"token match in group", "Mainland Butter Salted (500g)", 10, 1},
		{"other group ignored", "Pic's Peanut Butter (380g)", 10, 1},
		{"most tokens wins", "Pic's Peanut Butter (380g)", 20, 4},
		{"case sensitive", "mainland butter", 10, 0},
		{"no match", "Rolled Oats", 10, 0},
		{"milk", "Meadow Fresh Milk (2L)", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveParent(tt.product, tt.group, parents)
			if tt.expected == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Product.ID)
		})
	}
}

func TestResolveParentTieGoesToFirst(t *testing.T) {
	parents := Index([]grocy.Product{
		generic(1, "Cheese (Generic)", 10),
		generic(2, "Cheese Block (Generic)", 10),
		generic(3, "Cheese Slices (Generic)", 10),
	})

	got := ResolveParent("Mainland Cheese", 10, parents)
	require.NotNil(t, got)
	assert.Equal(t, grocy.ID(1), got.Product.ID)

	got = ResolveParent("Mainland Cheese Block", 10, parents)
	require.NotNil(t, got)
	assert.Equal(t, grocy.ID(2), got.Product.ID)
}

func TestChooseChild(t *testing.T) {
	parents := Index(inventory())
	butter, peanut, milk := parents[0], parents[1], parents[2]

	t.Run("no children", func(t *testing.T) {
		p := prompttest.New()
		got, err := NewResolver(p, zerolog.Nop()).ChooseChild(context.Background(), peanut)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, p.Calls)
	})

	t.Run("single child without prompt", func(t *testing.T) {
		p := prompttest.New()
		got, err := NewResolver(p, zerolog.Nop()).ChooseChild(context.Background(), milk)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, grocy.ID(6), got.ID)
		assert.Empty(t, p.Calls)
	})

	t.Run("operator chooses", func(t *testing.T) {
		p := prompttest.New(prompttest.Choose(1))
		got, err := NewResolver(p, zerolog.Nop()).ChooseChild(context.Background(), butter)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, grocy.ID(3), got.ID)
		require.Len(t, p.Calls, 1)
		assert.Equal(t, []string{"Anchor Butter (500g)", "Lewis Road Butter (250g)", SkipChoice}, p.Calls[0].Choices)
	})

	t.Run("skip", func(t *testing.T) {
		p := prompttest.New(prompttest.Choose(2))
		got, err := NewResolver(p, zerolog.Nop()).ChooseChild(context.Background(), butter)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("cancel", func(t *testing.T) {
		p := prompttest.New(prompttest.Cancel())
		got, err := NewResolver(p, zerolog.Nop()).ChooseChild(context.Background(), butter)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
