package hasher_test

import (
	"testing"

	"github.com/ardanlabs/docledger/foundation/ledger/hasher"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Canonical(t *testing.T) {
	type table struct {
		name string
		a    any
		b    any
		exp  string
	}

	tt := []table{
		{
			name: "flat",
			a:    map[string]any{"proof": 1, "index": 2, "previous_hash": "0"},
			b:    map[string]any{"index": 2, "previous_hash": "0", "proof": 1},
			exp:  `{"index":2,"previous_hash":"0","proof":1}`,
		},
		{
			name: "nested",
			a: map[string]any{
				"documents": []any{map[string]any{"title": "Deed", "description": "<x>"}},
				"created_at": int64(1700000000000000000),
			},
			b: struct {
				CreatedAt int64            `json:"created_at"`
				Documents []map[string]any `json:"documents"`
			}{
				CreatedAt: 1700000000000000000,
				Documents: []map[string]any{{"description": "<x>", "title": "Deed"}},
			},
			exp: `{"created_at":1700000000000000000,"documents":[{"description":"<x>","title":"Deed"}]}`,
		},
	}

	t.Log("Given the need to serialize records deterministically.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s records.", testID, tst.name)
			{
				f := func(t *testing.T) {
					a, err := hasher.Canonical(tst.a)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to serialize the first record: %v", failed, testID, err)
					}
					b, err := hasher.Canonical(tst.b)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to serialize the second record: %v", failed, testID, err)
					}

					if string(a) != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, a)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get the canonical form.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the canonical form.", success, testID)

					if string(a) != string(b) {
						t.Fatalf("\t%s\tTest %d:\tShould ignore field order.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould ignore field order.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Digest(t *testing.T) {
	t.Log("Given the need to digest records.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen digesting the same record twice.", testID)
		{
			rec := map[string]any{"index": 1, "proof": 1, "previous_hash": "0", "documents": []any{}}

			h1, err := hasher.Digest(rec)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to digest: %v", failed, testID, err)
			}
			h2, _ := hasher.Digest(rec)

			if h1 != h2 {
				t.Fatalf("\t%s\tTest %d:\tShould be deterministic.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be deterministic.", success, testID)

			if len(h1) != hasher.Size {
				t.Fatalf("\t%s\tTest %d:\tShould be %d hex characters, got %d.", failed, testID, hasher.Size, len(h1))
			}
			t.Logf("\t%s\tTest %d:\tShould be %d hex characters.", success, testID, hasher.Size)
		}

		testID++
		t.Logf("\tTest %d:\tWhen summing a known value.", testID)
		{
			const exp = "5feceb66ffc86f38d952786c6d696c79c2dbc239dd4e91b46729d73a27fb57e9"
			if got := hasher.Sum([]byte("0")); got != exp {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
				t.Fatalf("\t%s\tTest %d:\tShould match the SHA-256 of \"0\".", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould match the SHA-256 of \"0\".", success, testID)
		}
	}
}
