package order

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Los montos se validan como números (gte=0 sobre decimal.Decimal).
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateCart valida el carrito; el error envuelve domain.ErrInvalidInput con el detalle por campo.
func validateCart(v *validator.Validate, cart *entity.OrderData) error {
	if err := v.Struct(cart); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	seen := make(map[entity.ReservationKey]struct{}, len(cart.Products))
	for _, p := range cart.Products {
		if _, dup := seen[p.Key()]; dup {
			return fmt.Errorf("%w: línea duplicada para producto %s en bodega %s", domain.ErrInvalidInput, p.ProductID, p.WarehouseID)
		}
		seen[p.Key()] = struct{}{}
	}
	return nil
}

// currencyOf moneda de la orden: la de los costos o, si falta, la de la primera línea.
func currencyOf(cart *entity.OrderData) string {
	if cart.Costs != nil && cart.Costs.Currency != "" {
		return cart.Costs.Currency
	}
	if len(cart.Products) > 0 {
		return cart.Products[0].Currency
	}
	return ""
}
