package typeddata

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
)

func cancelPayload() domain.TypedPayload {
	return domain.TypedPayload{
		Domain: domain.TypedDomain{
			Name:              "ImmutableOrderbook",
			Version:           "1",
			ChainID:           "13371",
			VerifyingContract: "0x7d117aA8BD6D31c4fa91722f246388f38ab1942c",
		},
		Types: map[string][]domain.TypedField{
			"CancelPayload": {
				{Name: "orders", Type: "string[]"},
			},
		},
		Value: map[string]interface{}{
			"orders": []interface{}{"018a8c71-d7e4-e303-a2ef-318871ef7756"},
		},
	}
}

func TestBuildTypedDataFullDomain(t *testing.T) {
	td, err := BuildTypedData(cancelPayload(), CancelPayloadType)
	require.NoError(t, err)

	assert.Equal(t, "CancelPayload", td.PrimaryType)
	names := []string{}
	for _, f := range td.Types["EIP712Domain"] {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name", "version", "chainId", "verifyingContract"}, names)
	assert.Equal(t, "13371", (*big.Int)(td.Domain.ChainId).String())
	assert.Equal(t, cancelPayload().Value["orders"], td.Message["orders"])

	hash, err := Hash(td)
	require.NoError(t, err)
	assert.Len(t, hash, 32)
}

func TestBuildTypedDataOmitsEmptyDomainFields(t *testing.T) {
	p := cancelPayload()
	p.Domain.Version = ""
	p.Domain.VerifyingContract = ""
	p.Domain.ChainID = "0x343B"

	td, err := BuildTypedData(p, CancelPayloadType)
	require.NoError(t, err)

	require.Len(t, td.Types["EIP712Domain"], 2)
	assert.Equal(t, "name", td.Types["EIP712Domain"][0].Name)
	assert.Equal(t, "chainId", td.Types["EIP712Domain"][1].Name)
	assert.Equal(t, "13371", (*big.Int)(td.Domain.ChainId).String())

	_, err = Hash(td)
	require.NoError(t, err)
}

func TestBuildTypedDataRejectsNonNumericChainID(t *testing.T) {
	p := cancelPayload()
	p.Domain.ChainID = "immutable-zkevm"

	_, err := BuildTypedData(p, CancelPayloadType)
	assert.Error(t, err)
}

func TestBuildTypedDataIgnoresBackendDomainType(t *testing.T) {
	p := cancelPayload()
	p.Domain.Version = ""
	p.Types["EIP712Domain"] = []domain.TypedField{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
	}

	td, err := BuildTypedData(p, CancelPayloadType)
	require.NoError(t, err)
	assert.Len(t, td.Types["EIP712Domain"], 3)
}

func TestBuildTypedDataUnknownPrimaryType(t *testing.T) {
	_, err := BuildTypedData(cancelPayload(), "OrderComponents")
	assert.Error(t, err)
}

func TestRootTypeDerivation(t *testing.T) {
	types := map[string][]domain.TypedField{
		"OrderComponents": {
			{Name: "offerer", Type: "address"},
			{Name: "offer", Type: "OfferItem[]"},
			{Name: "consideration", Type: "ConsiderationItem[]"},
		},
		"OfferItem":         {{Name: "token", Type: "address"}},
		"ConsiderationItem": {{Name: "recipient", Type: "address"}},
	}

	root, err := RootType(types)
	require.NoError(t, err)
	assert.Equal(t, "OrderComponents", root)

	types["Orphan"] = []domain.TypedField{{Name: "x", Type: "uint256"}}
	_, err = RootType(types)
	assert.Error(t, err)
}

func TestBuildTypedDataKeepsLargeIntegers(t *testing.T) {
	const doc = `{
		"domain": {"name": "ImmutableOrderbook", "version": "1", "chainId": 13371},
		"types": {
			"Order": [{"name": "orderId", "type": "uint256"}, {"name": "item", "type": "Item"}],
			"Item": [{"name": "amount", "type": "uint256"}]
		},
		"value": {"orderId": %s, "item": {"amount": %s}}
	}`
	const large = "123456789012345678901"

	var numeric, quoted domain.TypedPayload
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(doc, large, large)), &numeric))
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(doc, `"`+large+`"`, `"`+large+`"`)), &quoted))

	fromNumbers, err := BuildTypedData(numeric, "Order")
	require.NoError(t, err)
	fromStrings, err := BuildTypedData(quoted, "Order")
	require.NoError(t, err)

	want, err := Hash(fromStrings)
	require.NoError(t, err)
	got, err := Hash(fromNumbers)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sent, err := json.Marshal(fromNumbers)
	require.NoError(t, err)
	assert.Contains(t, string(sent), large)
}
