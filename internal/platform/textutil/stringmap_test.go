package textutil

import (
	"reflect"
	"testing"
)

func TestCompactStringMap(t *testing.T) {
	t.Run("trims and drops blank entries", func(t *testing.T) {
		input := map[string]string{
			" event ": " seo.metadata.upserted ",
			"pageUrl": " /product/red-shirt ",
			"empty":   " ",
			" ":       "ignored",
			"":        "ignore",
		}

		expected := map[string]string{
			"event":   "seo.metadata.upserted",
			"pageUrl": "/product/red-shirt",
		}

		actual := CompactStringMap(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil when nothing survives", func(t *testing.T) {
		if CompactStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if CompactStringMap(map[string]string{"a": " "}) != nil {
			t.Fatalf("expected nil when all values are blank")
		}
	})
}
