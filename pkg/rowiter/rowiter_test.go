package rowiter_test

import (
	"strconv"

	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/testcase/random"
)

var rnd = random.New(random.CryptoSeed{})

const query = `SELECT key, value FROM pairs ORDER BY key`

func scanInt(s rowiter.Scanner) (int, error) {
	var n int
	err := s.Scan(&n)
	return n, err
}

type Group struct {
	Key    string
	Values []int
}

func splitKV(s rowiter.Scanner) (string, int, error) {
	var (
		k string
		v int
	)
	err := s.Scan(&k, &v)
	return k, v, err
}

func toGroup(key string, values []int) Group {
	return Group{Key: key, Values: values}
}

func rowsOf(vs ...int) [][]any {
	var rows [][]any
	for _, v := range vs {
		rows = append(rows, []any{v})
	}
	return rows
}

func randomGroups(size int) []Group {
	var groups []Group
	for i := 0; i < size; i++ {
		g := Group{Key: "key-" + strconv.Itoa(i)}
		for j, n := 0, rnd.IntBetween(1, 5); j < n; j++ {
			g.Values = append(g.Values, rnd.Int())
		}
		groups = append(groups, g)
	}
	return groups
}

func rowsOfGroups(groups []Group) [][]any {
	var rows [][]any
	for _, g := range groups {
		for _, v := range g.Values {
			rows = append(rows, []any{g.Key, v})
		}
	}
	return rows
}
