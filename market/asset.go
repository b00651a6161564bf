package market

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidPrice    = fmt.Errorf("%w: price must be positive", ErrInvalidArgument)
)

// AssetType selects one side of a base/quote pair.
type AssetType int8

const (
	Base AssetType = iota
	Quote
)

func (a AssetType) String() string {
	switch a {
	case Base:
		return "base"
	case Quote:
		return "quote"
	default:
		return fmt.Sprintf("asset(%d)", int8(a))
	}
}

// ParseAssetType accepts "base" or "quote".
func ParseAssetType(s string) (AssetType, error) {
	switch s {
	case "base":
		return Base, nil
	case "quote":
		return Quote, nil
	}
	return 0, fmt.Errorf("%w: unknown asset %q", ErrInvalidArgument, s)
}

// MarshalText lets AssetType round-trip through yaml and json configs.
func (a AssetType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AssetType) UnmarshalText(b []byte) error {
	v, err := ParseAssetType(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
