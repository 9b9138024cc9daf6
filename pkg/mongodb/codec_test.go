package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type costDoc struct {
	Cost     decimal.Decimal  `bson:"cost"`
	Optional *decimal.Decimal `bson:"optional,omitempty"`
	Metadata map[string]any   `bson:"metadata"`
}

func TestRegistry_DecimalStoredAsDecimal128(t *testing.T) {
	reg := NewRegistry()
	cost := decimal.RequireFromString("1234.5678")

	data, err := bson.MarshalWithRegistry(reg, costDoc{
		Cost:     cost,
		Optional: &cost,
		Metadata: map[string]any{"carrier": map[string]any{"name": "ups"}},
	})
	require.NoError(t, err)
	assert.Equal(t, bsontype.Decimal128, bson.Raw(data).Lookup("cost").Type)

	var out costDoc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.True(t, out.Cost.Equal(cost), "got %s", out.Cost)
	require.NotNil(t, out.Optional)
	assert.True(t, out.Optional.Equal(cost))
	assert.IsType(t, bson.M{}, out.Metadata["carrier"])
}

func TestRegistry_DecimalFromLegacyTypes(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		name string
		doc  bson.M
		want string
	}{
		{"string", bson.M{"cost": "9.99"}, "9.99"},
		{"double", bson.M{"cost": 0.5}, "0.5"},
		{"int32", bson.M{"cost": int32(7)}, "7"},
		{"int64", bson.M{"cost": int64(12)}, "12"},
		{"null", bson.M{"cost": nil}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(tt.doc)
			require.NoError(t, err)

			var out costDoc
			require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
			assert.True(t, out.Cost.Equal(decimal.RequireFromString(tt.want)), "got %s", out.Cost)
		})
	}
}

func TestRegistry_RejectsNonNumeric(t *testing.T) {
	data, err := bson.Marshal(bson.M{"cost": true})
	require.NoError(t, err)

	var out costDoc
	assert.Error(t, bson.UnmarshalWithRegistry(NewRegistry(), data, &out))
}
