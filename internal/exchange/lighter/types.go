package lighter

// Wire types for the lighter REST and stream APIs. Prices and sizes stay
// strings until they cross the scaling boundary in internal/numeric.

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type orderBooksResponse struct {
	apiResponse
	OrderBooks []orderBookMeta `json:"order_books"`
}

type orderBookMeta struct {
	Symbol                 string `json:"symbol"`
	MarketID               int64  `json:"market_id"`
	SupportedPriceDecimals int32  `json:"supported_price_decimals"`
	SupportedSizeDecimals  int32  `json:"supported_size_decimals"`
	MinBaseAmount          string `json:"min_base_amount"`
}

type orderBookDetailsResponse struct {
	apiResponse
	Details []orderBookDetail `json:"order_book_details"`
}

type orderBookDetail struct {
	Symbol         string `json:"symbol"`
	LastTradePrice string `json:"last_trade_price"`
	MarkPrice      string `json:"mark_price"`
}

type candlesticksResponse struct {
	apiResponse
	Candlesticks []candlestick `json:"candlesticks"`
}

type candlestick struct {
	Timestamp int64  `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume0"`
}

type accountsResponse struct {
	apiResponse
	Accounts []accountDetail `json:"accounts"`
}

type accountDetail struct {
	Collateral       string            `json:"collateral"`
	AvailableBalance string            `json:"available_balance"`
	Positions        []accountPosition `json:"positions"`
}

type accountPosition struct {
	MarketID      int64  `json:"market_id"`
	Symbol        string `json:"symbol"`
	Sign          int    `json:"sign"`
	Position      string `json:"position"`
	AvgEntryPrice string `json:"avg_entry_price"`
	UnrealizedPnL string `json:"unrealized_pnl"`
}

type nextNonceResponse struct {
	apiResponse
	Nonce int64 `json:"nonce"`
}

type sendTxResponse struct {
	apiResponse
	TxHash string `json:"tx_hash"`
}

// Stream messages. Every inbound frame carries a type discriminator of the
// form {subscribed|update}/{channel-kind}.
type wsInbound struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel"`
	Offset    int64           `json:"offset"`
	Timestamp int64           `json:"timestamp"`
	OrderBook *wsOrderBook    `json:"order_book"`
	Account   *wsAccount      `json:"account"`
	Orders    wsAccountOrders `json:"orders"`
}

type wsSubscribe struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Auth    string `json:"auth,omitempty"`
}

type wsPing struct {
	Type string `json:"type"`
}

type wsOrderBook struct {
	Offset    int64         `json:"offset"`
	Timestamp int64         `json:"timestamp"`
	Bids      []wsBookLevel `json:"bids"`
	Asks      []wsBookLevel `json:"asks"`
}

type wsBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wsAccount struct {
	Collateral       string                `json:"collateral"`
	AvailableBalance string                `json:"available_balance"`
	Positions        map[string]wsPosition `json:"positions"`
}

type wsPosition struct {
	MarketID      int64  `json:"market_id"`
	Symbol        string `json:"symbol"`
	Sign          int    `json:"sign"`
	Position      string `json:"position"`
	AvgEntryPrice string `json:"avg_entry_price"`
	UnrealizedPnL string `json:"unrealized_pnl"`
}

type wsAccountOrders map[string][]wsOrder

type wsOrder struct {
	OrderIndex          int64  `json:"order_index"`
	ClientOrderIndex    int64  `json:"client_order_index"`
	MarketID            int64  `json:"market_index"`
	Price               string `json:"price"`
	InitialBaseAmount   string `json:"initial_base_amount"`
	RemainingBaseAmount string `json:"remaining_base_amount"`
	IsAsk               bool   `json:"is_ask"`
	Type                string `json:"type"`
	TimeInForce         string `json:"time_in_force"`
	ReduceOnly          bool   `json:"reduce_only"`
	Status              string `json:"status"`
	Timestamp           int64  `json:"timestamp"`
}

// Signed transaction types accepted by sendTx.
const (
	txTypeCreateOrder     = 14
	txTypeCancelOrder     = 15
	txTypeCancelAllOrders = 16
)

// createOrderTx is the canonical signing payload for an order placement. The
// signature field is appended after signing the canonical bytes of the rest.
type createOrderTx struct {
	AccountIndex     int64  `json:"account_index"`
	MarketIndex      int64  `json:"market_index"`
	ClientOrderIndex int64  `json:"client_order_index"`
	BaseAmount       int64  `json:"base_amount"`
	Price            int64  `json:"price"`
	IsAsk            bool   `json:"is_ask"`
	Type             int    `json:"type"`
	TimeInForce      int    `json:"time_in_force"`
	ReduceOnly       bool   `json:"reduce_only"`
	TriggerPrice     int64  `json:"trigger_price"`
	OrderExpiry      int64  `json:"order_expiry"`
	ExpiredAt        int64  `json:"expired_at"`
	Nonce            int64  `json:"nonce"`
	APIKeyIndex      uint8  `json:"api_key_index"`
	Signature        string `json:"signature,omitempty"`
}

type cancelOrderTx struct {
	AccountIndex int64  `json:"account_index"`
	MarketIndex  int64  `json:"market_index"`
	OrderIndex   int64  `json:"order_index"`
	ExpiredAt    int64  `json:"expired_at"`
	Nonce        int64  `json:"nonce"`
	APIKeyIndex  uint8  `json:"api_key_index"`
	Signature    string `json:"signature,omitempty"`
}

type cancelAllOrdersTx struct {
	AccountIndex int64  `json:"account_index"`
	MarketIndex  int64  `json:"market_index"`
	ExpiredAt    int64  `json:"expired_at"`
	Nonce        int64  `json:"nonce"`
	APIKeyIndex  uint8  `json:"api_key_index"`
	Signature    string `json:"signature,omitempty"`
}
