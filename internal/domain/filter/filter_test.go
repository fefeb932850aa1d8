package filter

import (
	"testing"
	"time"
)

func TestEq(t *testing.T) {
	meta := map[string]any{"lang": "en", "year": 2016}

	if !Eq("lang", "en").Matches(meta) {
		t.Error("expected lang=en to match")
	}
	if Eq("lang", "de").Matches(meta) {
		t.Error("expected lang=de not to match")
	}
	if !Eq("year", 2016).Matches(meta) {
		t.Error("expected year=2016 to match")
	}
	if !Eq("year", 2016.0).Matches(meta) {
		t.Error("expected int metadata to match float filter value")
	}
}

func TestMissingFieldIsFalseNotError(t *testing.T) {
	meta := map[string]any{"lang": "en"}

	if Eq("author", "smith").Matches(meta) {
		t.Error("predicate on absent field must evaluate to false")
	}
	if Gt("year", 2000).Matches(meta) {
		t.Error("range predicate on absent field must evaluate to false")
	}
	// Not(absent) is true: the document does not carry the excluded value.
	if !Not(Eq("author", "smith")).Matches(meta) {
		t.Error("negated predicate on absent field must evaluate to true")
	}
}

func TestInMembership(t *testing.T) {
	docs := []map[string]any{
		{"id": "a", "year": 2016},
		{"id": "b", "year": 2020},
	}
	expr := In("year", 2015, 2016, 2017)

	var retained []string
	for _, meta := range docs {
		if expr.Matches(meta) {
			retained = append(retained, meta["id"].(string))
		}
	}

	if len(retained) != 1 || retained[0] != "a" {
		t.Errorf("expected retained set {a}, got %v", retained)
	}
}

func TestListValuedField(t *testing.T) {
	meta := map[string]any{"tags": []string{"go", "search"}}

	if !Eq("tags", "go").Matches(meta) {
		t.Error("expected list field to match on any element")
	}
	if Eq("tags", "python").Matches(meta) {
		t.Error("expected list field without element not to match")
	}
}

func TestRangeComparisons(t *testing.T) {
	meta := map[string]any{"price": 9.5, "year": 2016}

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"gt true", Gt("price", 9.0), true},
		{"gt false on equal", Gt("price", 9.5), false},
		{"gte true on equal", Gte("price", 9.5), true},
		{"lt true", Lt("year", 2020), true},
		{"lte false", Lte("year", 2015), false},
		{"non-numeric bound vs string field", Gt("price", "cheap"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.Matches(meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateComparison(t *testing.T) {
	published := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	meta := map[string]any{"published": published}

	if !Gte("published", "2021-01-01").Matches(meta) {
		t.Error("expected date string bound to compare against time.Time field")
	}
	if Gt("published", published).Matches(meta) {
		t.Error("expected gt against equal date to be false")
	}

	// Dates persisted as RFC 3339 strings still compare.
	stored := map[string]any{"published": published.Format(time.RFC3339)}
	if !Lt("published", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)).Matches(stored) {
		t.Error("expected string-encoded date to compare against time.Time bound")
	}
}

func TestNestedConnectives(t *testing.T) {
	meta := map[string]any{"lang": "en", "year": 2016, "category": "news"}

	expr := And(
		Eq("lang", "en"),
		Or(
			Gt("year", 2018),
			Not(Eq("category", "blog")),
		),
	)
	if !expr.Matches(meta) {
		t.Error("expected nested expression to match")
	}

	expr = And(Eq("lang", "en"), Not(Eq("category", "news")))
	if expr.Matches(meta) {
		t.Error("expected negated branch to reject")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		expr    Expression
		wantErr bool
	}{
		{"valid predicate", Eq("lang", "en"), false},
		{"valid nested", And(Eq("a", 1), Or(Lt("b", 2), Not(Eq("c", "x")))), false},
		{"empty field", Eq("", "en"), true},
		{"nil value", Eq("lang", nil), true},
		{"empty in", In("year"), true},
		{"empty and", And(), true},
		{"nil not operand", Not(nil), true},
		{"string range bound", Gt("year", "newish"), true},
		{"unsupported value type", Eq("meta", map[string]any{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expr.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
