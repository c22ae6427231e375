package core

import (
	"strings"
	"testing"
)

func TestParseRules(t *testing.T) {
	text := strings.Join([]string{
		"# groceries",
		"",
		"Coles => groceries",
		"woolworths=>GROCERIES",
		"no arrow here",
		"bp => PETROL => ignored",
		"=> FOOD",
		"cafe =>",
		"  h&m  =>  Clothing  ",
	}, "\n")

	rules := ParseRules(text)
	want := []Rule{
		{Keyword: "coles", Category: "GROCERIES"},
		{Keyword: "woolworths", Category: "GROCERIES"},
		{Keyword: "bp", Category: "PETROL"},
		{Keyword: "h&m", Category: "CLOTHING"},
	}
	if len(rules) != len(want) {
		t.Fatalf("got %d rules %+v, want %d", len(rules), rules, len(want))
	}
	for i := range want {
		if rules[i] != want[i] {
			t.Fatalf("rule %d = %+v, want %+v", i, rules[i], want[i])
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		desc    string
		keyword string
		want    bool
	}{
		{"COLES 1234 SYDNEY", "coles", true},
		{"coles 1234", "COLES", true},
		{"CAFE.COM PAYMENT", "cafe", true},
		{"ECAFE SYDNEY", "cafe", false},
		{"CAFE.COM PAYMENT", "com", false},
		{"H&M OXFORD ST", "h&m", true},
		{"FOO-BAR", "bar", true},
		{"WOOLWORTHS METRO 22", "woolworths metro", true},
		{"METRO WOOLWORTHS", "woolworths metro", true},
		{"WOOLWORTHS 1234", "woolworths metro", false},
		{"ANYTHING", "", false},
		{"ANYTHING", "   ", false},
		{"", "coles", false},
	}
	for _, c := range cases {
		if got := Matches(c.desc, c.keyword); got != c.want {
			t.Fatalf("Matches(%q, %q) = %v, want %v", c.desc, c.keyword, got, c.want)
		}
	}
}

func TestCategoriseFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Keyword: "coles express", Category: "PETROL"},
		{Keyword: "coles", Category: "GROCERIES"},
	}
	txns := []Transaction{
		{Description: "COLES EXPRESS 1701", Amount: 60.00},
		{Description: "COLES 4123 SYDNEY", Amount: 84.20},
	}
	Categorise(txns, rules)
	if txns[0].Category != "PETROL" {
		t.Fatalf("txn 0 category = %q, want PETROL", txns[0].Category)
	}
	if txns[1].Category != "GROCERIES" {
		t.Fatalf("txn 1 category = %q, want GROCERIES", txns[1].Category)
	}
}

func TestCategoriseNoMatchLeavesEmpty(t *testing.T) {
	txns := []Transaction{{Description: "MYSTERY SHOP", Amount: 10}}
	Categorise(txns, []Rule{{Keyword: "coles", Category: "GROCERIES"}})
	if txns[0].Category != "" {
		t.Fatalf("category = %q, want empty", txns[0].Category)
	}
	if got := txns[0].EffectiveCategory(); got != Uncategorised {
		t.Fatalf("effective category = %q, want %q", got, Uncategorised)
	}
}

func TestCategorisePetrolMicroPurchase(t *testing.T) {
	rules := []Rule{{Keyword: "bp", Category: "PETROL"}}
	cases := []struct {
		amount float64
		want   string
	}{
		{1.50, "COFFEE"},
		{-1.50, "COFFEE"},
		{2.00, "COFFEE"},
		{2.01, "PETROL"},
		{-2.01, "PETROL"},
		{45.00, "PETROL"},
	}
	for _, c := range cases {
		txns := []Transaction{{Description: "BP CONNECT 123", Amount: c.amount}}
		Categorise(txns, rules)
		if txns[0].Category != c.want {
			t.Fatalf("amount %.2f: category = %q, want %q", c.amount, txns[0].Category, c.want)
		}
	}
}

func TestCategoriseOverrideOnlyForPetrol(t *testing.T) {
	rules := []Rule{{Keyword: "kiosk", Category: "SNACKS"}}
	txns := []Transaction{{Description: "KIOSK 9", Amount: 1.00}}
	Categorise(txns, rules)
	if txns[0].Category != "SNACKS" {
		t.Fatalf("category = %q, want SNACKS", txns[0].Category)
	}
}

func TestCategoriseFromRuleText(t *testing.T) {
	rules := ParseRules(strings.Join([]string{
		"# supermarkets first",
		"woolworths => GROCERIES",
		"coles => GROCERIES",
		"bp => PETROL",
	}, "\n"))
	txns := []Transaction{
		{Description: "WOOLWORTHS 1234 SYDNEY", Amount: 84.20},
		{Description: "BP CONNECT PARRAMATTA", Amount: 1.80},
		{Description: "BP CONNECT PARRAMATTA", Amount: 61.35},
		{Description: "UNKNOWN MERCHANT", Amount: 10.00},
	}
	Categorise(txns, rules)
	want := []string{"GROCERIES", "COFFEE", "PETROL", ""}
	for i, w := range want {
		if txns[i].Category != w {
			t.Fatalf("txn %d category = %q, want %q", i, txns[i].Category, w)
		}
	}
}

func TestUpsertRuleReplacesExistingLine(t *testing.T) {
	text := "# header\ncoles => FOOD\nbp => PETROL"
	got, changed := UpsertRule(text, "Coles", "groceries")
	if !changed {
		t.Fatal("expected change")
	}
	want := "# header\nCOLES => GROCERIES\nbp => PETROL"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUpsertRuleAppendsWhenMissing(t *testing.T) {
	got, changed := UpsertRule("coles => GROCERIES\n", "aldi", "groceries")
	if !changed {
		t.Fatal("expected change")
	}
	want := "coles => GROCERIES\nALDI => GROCERIES"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got, changed = UpsertRule("coles => GROCERIES", "aldi", "groceries")
	if !changed || got != want {
		t.Fatalf("got %q (changed %v), want %q", got, changed, want)
	}
}

func TestUpsertRulePreservesUnrelatedLines(t *testing.T) {
	text := strings.Join([]string{
		"# kept exactly",
		"",
		"  spaced line without arrow  ",
		"coles => FOOD",
	}, "\n")
	got, _ := UpsertRule(text, "coles", "GROCERIES")
	want := strings.Join([]string{
		"# kept exactly",
		"",
		"  spaced line without arrow  ",
		"COLES => GROCERIES",
	}, "\n")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUpsertRuleIdempotent(t *testing.T) {
	once, _ := UpsertRule("bp => PETROL", "aldi", "GROCERIES")
	twice, changed := UpsertRule(once, "aldi", "GROCERIES")
	if !changed {
		t.Fatal("second upsert still reports a change")
	}
	if twice != once {
		t.Fatalf("second upsert altered text: %q vs %q", twice, once)
	}
}

func TestUpsertRuleRejectsEmptyArguments(t *testing.T) {
	for _, c := range []struct{ keyword, category string }{
		{"", "GROCERIES"},
		{"coles", ""},
		{"   ", "GROCERIES"},
		{"coles", "   "},
	} {
		got, changed := UpsertRule("bp => PETROL", c.keyword, c.category)
		if changed || got != "bp => PETROL" {
			t.Fatalf("UpsertRule(%q, %q) = (%q, %v), want original and false", c.keyword, c.category, got, changed)
		}
	}
}

func TestUpsertRuleIntoEmptyText(t *testing.T) {
	got, changed := UpsertRule("", "coles", "groceries")
	if !changed || got != "COLES => GROCERIES" {
		t.Fatalf("got (%q, %v)", got, changed)
	}
}
