// Package typeddata turns backend signing payloads into complete EIP-712
// documents.
package typeddata

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
)

// CancelPayloadType is the primary type of order cancellation payloads.
const CancelPayloadType = "CancelPayload"

const domainType = "EIP712Domain"

// BuildTypedData synthesizes the EIP712Domain type from the domain fields
// that are present, merges the payload types and uses value as the message.
// An empty primaryType is derived from the type graph.
func BuildTypedData(raw domain.TypedPayload, primaryType string) (apitypes.TypedData, error) {
	var (
		domainFields []apitypes.Type
		td           apitypes.TypedData
	)

	if raw.Domain.Name != "" {
		domainFields = append(domainFields, apitypes.Type{Name: "name", Type: "string"})
		td.Domain.Name = raw.Domain.Name
	}
	if raw.Domain.Version != "" {
		domainFields = append(domainFields, apitypes.Type{Name: "version", Type: "string"})
		td.Domain.Version = raw.Domain.Version
	}
	if raw.Domain.ChainID != "" {
		var id math.HexOrDecimal256
		if err := id.UnmarshalText([]byte(raw.Domain.ChainID)); err != nil {
			return apitypes.TypedData{}, fmt.Errorf("domain chainId %q is not numeric", raw.Domain.ChainID)
		}
		domainFields = append(domainFields, apitypes.Type{Name: "chainId", Type: "uint256"})
		td.Domain.ChainId = &id
	}
	if raw.Domain.VerifyingContract != "" {
		if !common.IsHexAddress(raw.Domain.VerifyingContract) {
			return apitypes.TypedData{}, fmt.Errorf("domain verifyingContract %q is not an address", raw.Domain.VerifyingContract)
		}
		domainFields = append(domainFields, apitypes.Type{Name: "verifyingContract", Type: "address"})
		td.Domain.VerifyingContract = raw.Domain.VerifyingContract
	}

	td.Types = apitypes.Types{domainType: domainFields}
	for name, fields := range raw.Types {
		// The synthesized domain type must match the domain values exactly.
		if name == domainType {
			continue
		}
		converted := make([]apitypes.Type, 0, len(fields))
		for _, f := range fields {
			converted = append(converted, apitypes.Type{Name: f.Name, Type: f.Type})
		}
		td.Types[name] = converted
	}

	if primaryType == "" {
		root, err := RootType(raw.Types)
		if err != nil {
			return apitypes.TypedData{}, err
		}
		primaryType = root
	}
	if _, ok := td.Types[primaryType]; !ok || primaryType == domainType {
		return apitypes.TypedData{}, fmt.Errorf("primary type %q not present in payload types", primaryType)
	}
	td.PrimaryType = primaryType
	td.Message = apitypes.TypedDataMessage{}
	for k, v := range raw.Value {
		td.Message[k] = exactNumbers(v)
	}
	return td, nil
}

// exactNumbers rewrites json.Number values as decimal strings, which
// apitypes encodes for every integer width without going through float64.
func exactNumbers(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = exactNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = exactNumbers(e)
		}
		return out
	default:
		return v
	}
}

// RootType returns the single type that no other type references.
func RootType(types map[string][]domain.TypedField) (string, error) {
	referenced := map[string]bool{}
	for name, fields := range types {
		if name == domainType {
			continue
		}
		for _, f := range fields {
			referenced[baseType(f.Type)] = true
		}
	}

	var roots []string
	for name := range types {
		if name != domainType && !referenced[name] {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	if len(roots) != 1 {
		return "", fmt.Errorf("cannot derive primary type: candidates %v", roots)
	}
	return roots[0], nil
}

// baseType strips array suffixes: "Item[2][]" -> "Item".
func baseType(t string) string {
	for i := 0; i < len(t); i++ {
		if t[i] == '[' {
			return t[:i]
		}
	}
	return t
}

// Hash returns the EIP-712 digest of td.
func Hash(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	return hash, err
}
