package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/davecgh/go-spew/spew"

	"github.com/doce-emergencia/storefront/internal/money"
)

type cartFeature struct {
	cart *Cart
}

func (f *cartFeature) anEmptyCart() error {
	f.cart = New()
	return nil
}

func (f *cartFeature) iAdd(qty int, id int64, name, price string) error {
	f.cart.Add(Line{ProductID: id, Name: name, UnitPrice: price, Quantity: qty})
	return nil
}

func (f *cartFeature) iIncrease(id int64) error {
	f.cart.Increase(id)
	return nil
}

func (f *cartFeature) iDecrease(id int64) error {
	f.cart.Decrease(id)
	return nil
}

func (f *cartFeature) iRemove(id int64) error {
	f.cart.Remove(id)
	return nil
}

func (f *cartFeature) iClear() error {
	f.cart.Clear()
	return nil
}

func (f *cartFeature) theCartHasLines(n int) error {
	if f.cart.Len() != n {
		return fmt.Errorf("expected %d lines, cart is %s", n, spew.Sdump(f.cart.Lines()))
	}
	return nil
}

func (f *cartFeature) productHasQuantity(id int64, qty int) error {
	l, ok := f.cart.Line(id)
	if !ok {
		return fmt.Errorf("product %d not in cart %s", id, spew.Sdump(f.cart.Lines()))
	}
	if l.Quantity != qty {
		return fmt.Errorf("expected quantity %d, got %s", qty, spew.Sdump(l))
	}
	return nil
}

func (f *cartFeature) theCartTotalIs(want string) error {
	if got := money.Format(f.cart.Total()); got != want {
		return fmt.Errorf("expected total %q, got %q for %s", want, got, spew.Sdump(f.cart.Lines()))
	}
	return nil
}

func (f *cartFeature) theCartCountIs(n int) error {
	if got := f.cart.Count(); got != n {
		return fmt.Errorf("expected count %d, got %d", n, got)
	}
	return nil
}

func initializeCartScenario(sc *godog.ScenarioContext) {
	f := &cartFeature{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		f.cart = New()
		return ctx, nil
	})

	sc.Step(`^an empty cart$`, f.anEmptyCart)

	sc.Step(`^I add (\d+) of product (\d+) "([^"]*)" priced "([^"]*)"$`, f.iAdd)
	sc.Step(`^I increase product (\d+)$`, f.iIncrease)
	sc.Step(`^I decrease product (\d+)$`, f.iDecrease)
	sc.Step(`^I remove product (\d+)$`, f.iRemove)
	sc.Step(`^I clear the cart$`, f.iClear)

	sc.Step(`^the cart has (\d+) lines?$`, f.theCartHasLines)
	sc.Step(`^product (\d+) has quantity (\d+)$`, f.productHasQuantity)
	sc.Step(`^the cart total is "([^"]*)"$`, f.theCartTotalIs)
	sc.Step(`^the cart count is (\d+)$`, f.theCartCountIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
