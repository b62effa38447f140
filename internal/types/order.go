package types

import (
	"fmt"

	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
)

type PurchaseType string

type OrderType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderReasonStrategy  string = "strategy"
	OrderReasonRotation  string = "rotation"
	OrderReasonLiquidate string = "liquidate"
)

type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// Order is a trading intent produced at a decision point. It carries no symbol:
// the engine that owns the decision knows which instrument it is trading.
//
// Exactly one of Quantity and Fraction is set. Fraction is a share of available
// cash for a BUY and of sellable shares for a SELL. Values are copied around,
// never mutated; the With* helpers return a new Order.
type Order struct {
	Side      PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType    `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	// Quantity is an absolute share count. Lot alignment is the caller's job.
	Quantity optional.Option[int64] `yaml:"quantity" json:"quantity"`
	// Fraction is in (0.0, 1.0].
	Fraction optional.Option[float64] `yaml:"fraction" json:"fraction"`
	// LimitPrice is only set for LIMIT orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	Reason     Reason                   `yaml:"reason" json:"reason"`
}

// BuyFraction returns a market order spending fraction of available cash.
func BuyFraction(fraction float64) Order {
	return Order{Side: PurchaseTypeBuy, OrderType: OrderTypeMarket, Fraction: optional.Some(fraction)}
}

// BuyQuantity returns a market order for an absolute share count.
func BuyQuantity(quantity int64) Order {
	return Order{Side: PurchaseTypeBuy, OrderType: OrderTypeMarket, Quantity: optional.Some(quantity)}
}

// SellFraction returns a market order selling fraction of the sellable shares.
func SellFraction(fraction float64) Order {
	return Order{Side: PurchaseTypeSell, OrderType: OrderTypeMarket, Fraction: optional.Some(fraction)}
}

// SellQuantity returns a market order selling an absolute share count.
func SellQuantity(quantity int64) Order {
	return Order{Side: PurchaseTypeSell, OrderType: OrderTypeMarket, Quantity: optional.Some(quantity)}
}

// SellAll liquidates the whole sellable position.
func SellAll() Order {
	return SellFraction(1.0)
}

// WithLimit turns the order into a limit order at price.
func (o Order) WithLimit(price float64) Order {
	o.OrderType = OrderTypeLimit
	o.LimitPrice = optional.Some(price)

	return o
}

// WithReason attaches a reason to the order.
func (o Order) WithReason(reason, message string) Order {
	o.Reason = Reason{Reason: reason, Message: message}

	return o
}

// Validate validates the Order struct.
func (o Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.Quantity.IsSome() == o.Fraction.IsSome() {
		return errors.New(errors.ErrCodeInvalidOrder, "order must set exactly one of quantity or fraction")
	}

	if o.Quantity.IsSome() && o.Quantity.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %d", o.Quantity.Unwrap())
	}

	if o.Fraction.IsSome() {
		if f := o.Fraction.Unwrap(); f <= 0 || f > 1 {
			return errors.Newf(errors.ErrCodeInvalidFraction, "fraction must be in (0, 1], got %v", f)
		}
	}

	switch o.OrderType {
	case OrderTypeLimit:
		if o.LimitPrice.IsNone() || o.LimitPrice.Unwrap() <= 0 {
			return errors.New(errors.ErrCodeInvalidPrice, "limit order needs a positive limit price")
		}
	case OrderTypeMarket:
		if o.LimitPrice.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrder, "market order must not carry a limit price")
		}
	}

	return nil
}

func (o Order) String() string {
	sizing := ""
	if o.Quantity.IsSome() {
		sizing = fmt.Sprintf("qty=%d", o.Quantity.Unwrap())
	} else if o.Fraction.IsSome() {
		sizing = fmt.Sprintf("fraction=%g", o.Fraction.Unwrap())
	}

	if o.LimitPrice.IsSome() {
		return fmt.Sprintf("Order(%s, %s, %s, limit=%g)", o.Side, o.OrderType, sizing, o.LimitPrice.Unwrap())
	}

	return fmt.Sprintf("Order(%s, %s, %s)", o.Side, o.OrderType, sizing)
}
