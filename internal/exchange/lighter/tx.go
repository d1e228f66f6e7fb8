package lighter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
	"github.com/monkeypipijy/ritmex-bot/internal/nonce"
)

// Wire encodings for order type and time-in-force.
const (
	txOrderTypeLimit     = 0
	txOrderTypeMarket    = 1
	txOrderTypeStopLimit = 2

	txTIFImmediateOrCancel = 0
	txTIFGoodTillCancel    = 1
	txTIFPostOnly          = 2
)

// txExpiry is how long a submitted transaction stays valid for inclusion.
const txExpiry = 10 * time.Minute

// txBuilder converts trading intents into fully-formed, nonce-stamped, signed
// transactions. It signs the canonical payload bytes (everything but the
// signature field) with the key matching the issued nonce.
type txBuilder struct {
	accountIndex int64
	signers      map[uint8]Signer
	now          func() time.Time
}

func newTxBuilder(accountIndex int64, signers []Signer) (*txBuilder, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("at least one signer required")
	}
	byIndex := make(map[uint8]Signer, len(signers))
	for _, s := range signers {
		if _, dup := byIndex[s.APIKeyIndex()]; dup {
			return nil, fmt.Errorf("duplicate signer for api key index %d", s.APIKeyIndex())
		}
		byIndex[s.APIKeyIndex()] = s
	}
	return &txBuilder{accountIndex: accountIndex, signers: byIndex, now: time.Now}, nil
}

type signedTx struct {
	Type int
	Info []byte
}

type createOrderParams struct {
	MarketID         int64
	ClientOrderIndex int64
	BaseAmount       int64
	Price            int64
	IsAsk            bool
	Type             core.OrderType
	TIF              core.TimeInForce
	ReduceOnly       bool
	TriggerPrice     int64
	OrderExpiry      int64
}

func (b *txBuilder) BuildCreateOrder(params createOrderParams, iss nonce.Issued) (signedTx, error) {
	orderType, err := encodeOrderType(params.Type)
	if err != nil {
		return signedTx{}, err
	}
	tif, err := encodeTIF(params.TIF)
	if err != nil {
		return signedTx{}, err
	}
	tx := createOrderTx{
		AccountIndex:     b.accountIndex,
		MarketIndex:      params.MarketID,
		ClientOrderIndex: params.ClientOrderIndex,
		BaseAmount:       params.BaseAmount,
		Price:            params.Price,
		IsAsk:            params.IsAsk,
		Type:             orderType,
		TimeInForce:      tif,
		ReduceOnly:       params.ReduceOnly,
		TriggerPrice:     params.TriggerPrice,
		OrderExpiry:      params.OrderExpiry,
		ExpiredAt:        b.now().Add(txExpiry).UnixMilli(),
		Nonce:            iss.Nonce,
		APIKeyIndex:      iss.Key.APIKeyIndex,
	}
	info, err := b.sign(&tx.Signature, &tx, iss.Key.APIKeyIndex)
	if err != nil {
		return signedTx{}, err
	}
	return signedTx{Type: txTypeCreateOrder, Info: info}, nil
}

func (b *txBuilder) BuildCancelOrder(marketID, orderIndex int64, iss nonce.Issued) (signedTx, error) {
	tx := cancelOrderTx{
		AccountIndex: b.accountIndex,
		MarketIndex:  marketID,
		OrderIndex:   orderIndex,
		ExpiredAt:    b.now().Add(txExpiry).UnixMilli(),
		Nonce:        iss.Nonce,
		APIKeyIndex:  iss.Key.APIKeyIndex,
	}
	info, err := b.sign(&tx.Signature, &tx, iss.Key.APIKeyIndex)
	if err != nil {
		return signedTx{}, err
	}
	return signedTx{Type: txTypeCancelOrder, Info: info}, nil
}

func (b *txBuilder) BuildCancelAllOrders(marketID int64, iss nonce.Issued) (signedTx, error) {
	tx := cancelAllOrdersTx{
		AccountIndex: b.accountIndex,
		MarketIndex:  marketID,
		ExpiredAt:    b.now().Add(txExpiry).UnixMilli(),
		Nonce:        iss.Nonce,
		APIKeyIndex:  iss.Key.APIKeyIndex,
	}
	info, err := b.sign(&tx.Signature, &tx, iss.Key.APIKeyIndex)
	if err != nil {
		return signedTx{}, err
	}
	return signedTx{Type: txTypeCancelAllOrders, Info: info}, nil
}

// sign marshals the canonical payload with the signature slot empty, signs
// those bytes, then re-marshals with the signature set.
func (b *txBuilder) sign(sigField *string, tx interface{}, apiKeyIndex uint8) ([]byte, error) {
	signer, ok := b.signers[apiKeyIndex]
	if !ok {
		return nil, fmt.Errorf("no signer for api key index %d", apiKeyIndex)
	}
	*sigField = ""
	canonical, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignTransaction(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNonce, err)
	}
	*sigField = sig
	return json.Marshal(tx)
}

func encodeOrderType(t core.OrderType) (int, error) {
	switch t {
	case core.Limit, "":
		return txOrderTypeLimit, nil
	case core.Market:
		return txOrderTypeMarket, nil
	case core.StopLimit:
		return txOrderTypeStopLimit, nil
	}
	return 0, fmt.Errorf("unsupported order type %q", t)
}

func encodeTIF(tif core.TimeInForce) (int, error) {
	switch tif {
	case core.GTC, "":
		return txTIFGoodTillCancel, nil
	case core.IOC:
		return txTIFImmediateOrCancel, nil
	case core.PostOnly:
		return txTIFPostOnly, nil
	}
	return 0, fmt.Errorf("unsupported time in force %q", tif)
}
