// internal/scanner/classify.go
package scanner

import (
	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
	"github.com/HosicoLabs/Litterbox/internal/domain"
)

// Reason explains why an account is not a cleanup candidate.
type Reason string

const (
	Eligible                  Reason = ""
	ReasonMalformed           Reason = "malformed"
	ReasonReservedMint        Reason = "reserved_mint"
	ReasonZeroDecimals        Reason = "zero_decimals"
	ReasonNonZeroBalance      Reason = "non_zero_balance"
	ReasonNotInitialized      Reason = "not_initialized"
	ReasonNative              Reason = "native_wrapped"
	ReasonDelegated           Reason = "delegated"
	ReasonForeignCloseAuth    Reason = "foreign_close_authority"
	ReasonWithheldFee         Reason = "withheld_transfer_fee"
	ReasonOwnerMismatch       Reason = "owner_mismatch"
	ReasonAboveValueThreshold Reason = "above_value_threshold"
)

// ParseAccount turns a jsonParsed token account into a record. ok is false
// when the payload is not a token account.
func ParseAccount(acc blockchain.ParsedAccount) (domain.TokenAccountRecord, bool) {
	parsed := gjson.GetBytes(acc.Data, "parsed")
	if parsed.Get("type").String() != "account" {
		return domain.TokenAccountRecord{}, false
	}
	info := parsed.Get("info")

	mint, err := solana.PublicKeyFromBase58(info.Get("mint").String())
	if err != nil {
		return domain.TokenAccountRecord{}, false
	}
	owner, err := solana.PublicKeyFromBase58(info.Get("owner").String())
	if err != nil {
		return domain.TokenAccountRecord{}, false
	}
	amount := info.Get("tokenAmount.amount")
	if !amount.Exists() {
		return domain.TokenAccountRecord{}, false
	}

	rec := domain.TokenAccountRecord{
		Address:  acc.Address,
		Mint:     mint,
		Owner:    owner,
		Program:  acc.Program,
		Amount:   amount.Uint(),
		Decimals: uint8(info.Get("tokenAmount.decimals").Uint()),
		UIAmount: uiAmount(info.Get("tokenAmount")),
		Lamports: acc.Lamports,
		State:    domain.AccountState(info.Get("state").String()),
		IsNative: info.Get("isNative").Bool(),
	}

	rec.CloseAuthority = optionalKey(info.Get("closeAuthority"))
	rec.Delegate = optionalKey(info.Get("delegate"))
	if d := info.Get("delegatedAmount.amount"); d.Exists() {
		v := d.Uint()
		rec.DelegatedAmount = &v
	}

	for _, ext := range info.Get("extensions").Array() {
		if ext.Get("extension").String() != "transferFeeAmount" {
			continue
		}
		v := ext.Get("state.withheldAmount").Uint()
		rec.WithheldAmount = &v
	}
	return rec, true
}

// Classify applies the dust eligibility rules to one record.
func Classify(rec domain.TokenAccountRecord, wallet solana.PublicKey, reserved ...solana.PublicKey) Reason {
	for _, r := range reserved {
		if rec.Mint.Equals(r) {
			return ReasonReservedMint
		}
	}
	switch {
	case rec.Decimals == 0:
		return ReasonZeroDecimals
	case rec.Amount != 0 || rec.UIAmount != 0:
		return ReasonNonZeroBalance
	case rec.IsNative:
		return ReasonNative
	case rec.State != domain.StateInitialized:
		return ReasonNotInitialized
	case rec.Delegate != nil && rec.DelegatedAmount != nil && *rec.DelegatedAmount > 0:
		return ReasonDelegated
	case rec.CloseAuthority != nil && !rec.CloseAuthority.Equals(rec.Owner):
		return ReasonForeignCloseAuth
	case rec.WithheldAmount != nil && *rec.WithheldAmount > 0:
		return ReasonWithheldFee
	case !rec.Owner.Equals(wallet):
		return ReasonOwnerMismatch
	}
	return Eligible
}

func uiAmount(tokenAmount gjson.Result) float64 {
	if v := tokenAmount.Get("uiAmount"); v.Exists() && v.Type != gjson.Null {
		return v.Float()
	}
	return tokenAmount.Get("uiAmountString").Float()
}

func optionalKey(v gjson.Result) *solana.PublicKey {
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return nil
	}
	key, err := solana.PublicKeyFromBase58(v.String())
	if err != nil {
		return nil
	}
	return &key
}
