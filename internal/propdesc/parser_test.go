package propdesc

import "testing"

func TestParse_StandardCJK(t *testing.T) {
	t.Parallel()

	d := Parse("中環中心 18樓 A室")
	if d.PropertyName != "中環中心" || d.Floor != "18" || d.Unit != "A" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Pattern != "standard-cjk" {
		t.Fatalf("unexpected pattern: %s", d.Pattern)
	}
}

func TestParse_StandardEN(t *testing.T) {
	t.Parallel()

	d := Parse("The Center 18/F Unit A")
	if d.PropertyName != "The Center" || d.Floor != "18" || d.Unit != "A" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Pattern != "standard-en" {
		t.Fatalf("unexpected pattern: %s", d.Pattern)
	}
}

func TestParse_HouseWithoutFloor(t *testing.T) {
	t.Parallel()

	// House listings have no floor to parse; the sequential number is the
	// unit and must not be dropped.
	d := Parse("Garden Phase 1 Main Avenue House19")
	if d.PropertyName != "Garden Phase 1 Main Avenue" {
		t.Fatalf("unexpected property name: %q", d.PropertyName)
	}
	if d.Floor != "House" {
		t.Fatalf("unexpected floor token: %q", d.Floor)
	}
	if d.Unit != "19" {
		t.Fatalf("unexpected unit: %q", d.Unit)
	}
	if d.Pattern != "house-en" {
		t.Fatalf("unexpected pattern: %s", d.Pattern)
	}
}

func TestParse_HouseCJK(t *testing.T) {
	t.Parallel()

	d := Parse("倚巒 洋房3")
	if d.PropertyName != "倚巒" || d.Floor != "洋房" || d.Unit != "3" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestParse_WarehouseIsNotAHouse(t *testing.T) {
	t.Parallel()

	d := Parse("Kwai Chung Warehouse 5樓 B室")
	if d.Pattern == "house-en" {
		t.Fatalf("warehouse name false-matched the house pattern: %+v", d)
	}
	if d.Floor != "5" || d.Unit != "B" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestParse_IgnoresTrailingDealText(t *testing.T) {
	t.Parallel()

	d := Parse("中環中心 18樓 A室 寫字樓成交")
	if d.PropertyName != "中環中心" || d.Floor != "18" || d.Unit != "A" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestParse_FallbackKeepsFullName(t *testing.T) {
	t.Parallel()

	d := Parse("銅鑼灣全幢商廈")
	if d.PropertyName != "銅鑼灣全幢商廈" {
		t.Fatalf("unexpected property name: %q", d.PropertyName)
	}
	if d.Floor != Unknown || d.Unit != Unknown {
		t.Fatalf("fallback must not guess floor or unit: %+v", d)
	}
	if d.Pattern != "fallback" {
		t.Fatalf("unexpected pattern: %s", d.Pattern)
	}
}

func TestParse_StandardBeatsHouse(t *testing.T) {
	t.Parallel()

	// A description carrying both a house marker and a floor/unit tail is
	// parsed by the standard pattern; the matcher order is fixed.
	d := Parse("House Club 12樓 C室")
	if d.Pattern != "standard-cjk" {
		t.Fatalf("expected standard pattern to win, got %s (%+v)", d.Pattern, d)
	}
}
