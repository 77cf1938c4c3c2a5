package collector_test

import (
	"fmt"

	"igosint/pkg/collector"
	"igosint/pkg/session"
)

func ExampleExtractHashtags() {
	fmt.Println(collector.ExtractHashtags("loving #sunset_vibes and #2024! #2024vibes #sunset_vibes"))
	// Output: [#sunset_vibes #2024vibes]
}

func ExampleIntersect() {
	a := []session.User{{PK: "1"}, {PK: "2"}, {PK: "3"}}
	b := []session.User{{PK: "2"}, {PK: "3"}, {PK: "9"}}

	for _, u := range collector.Intersect(a, b, func(u session.User) string { return u.PK }) {
		fmt.Println(u.PK)
	}
	// Output:
	// 2
	// 3
}

func ExampleParseInfoList() {
	pks, err := collector.ParseInfoList([]byte(`[{"pk": "1"}, {"pk": "2"}, {"pk": "1"}]`))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pks)
	// Output: [1 2]
}
