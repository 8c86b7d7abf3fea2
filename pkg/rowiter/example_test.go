package rowiter_test

import (
	"context"
	"fmt"

	"go.llib.dev/rowstream/pkg/doubles"
	"go.llib.dev/rowstream/pkg/rowiter"
)

func ExampleNewGrouping() {
	type Order struct {
		Customer string
		Items    []string
	}

	src := &doubles.Source{Rows: [][]any{
		{"alice", "apple"},
		{"alice", "pear"},
		{"bob", "plum"},
	}}

	orders, err := rowiter.NewGrouping(context.Background(), src,
		`SELECT customer, item FROM orders ORDER BY customer`,
		func(s rowiter.Scanner) (string, string, error) {
			var customer, item string
			err := s.Scan(&customer, &item)
			return customer, item, err
		},
		func(customer string, items []string) Order {
			return Order{Customer: customer, Items: items}
		})
	if err != nil {
		panic(err)
	}
	defer orders.Close()

	for orders.HasNext() {
		o, err := orders.Next()
		if err != nil {
			panic(err)
		}
		fmt.Println(o.Customer, o.Items)
	}
	// Output:
	// alice [apple pear]
	// bob [plum]
}

func ExampleAll() {
	src := &doubles.Source{Rows: [][]any{{1}, {2}, {3}}}

	numbers, err := rowiter.NewFlat(context.Background(), src, `SELECT n FROM numbers`,
		func(s rowiter.Scanner) (int, error) {
			var n int
			err := s.Scan(&n)
			return n, err
		})
	if err != nil {
		panic(err)
	}

	for n, err := range rowiter.All[int](numbers) {
		if err != nil {
			panic(err)
		}
		fmt.Println(n)
	}
	// Output:
	// 1
	// 2
	// 3
}
