package validation

import (
	"testing"

	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Side  string `validate:"required,oneof=BUY SELL"`
	Price int64  `validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	testCases := []struct {
		name     string
		input    sample
		assertFn func(t *testing.T, err error)
	}{
		{
			name:  "valid",
			input: sample{Name: "a", Side: "BUY", Price: 1},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:  "collects every failing field",
			input: sample{Side: "HOLD"},
			assertFn: func(t *testing.T, err error) {
				require.Error(t, err)

				var base *errors.BaseError
				require.ErrorAs(t, err, &base)
				assert.Equal(t, []string{"Name", "Side", "Price"}, base.Fields())
				assert.True(t, base.IsAllCodeEqual(string(errors.InvalidOrder)))
				assert.True(t, errors.ErrorCodeEquals(err, errors.InvalidOrder))
				assert.Equal(t, "side must be one of [BUY SELL]", base.GetDetails()[1].Message)
				assert.Equal(t, "price must be greater than 0", base.GetDetails()[2].Message)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.assertFn(t, Struct(tc.input, errors.InvalidOrder))
		})
	}
}
