package shopping

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/hogarlabs/despensa/internal/model"
)

func TestOnList(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		threshold int
		auto      bool
		manual    bool
		want      bool
	}{
		{"below threshold with auto", 1, 2, true, false, true},
		{"at threshold with auto", 2, 2, true, false, true},
		{"above threshold with auto", 3, 2, true, false, false},
		{"manual override wins", 5, 2, false, true, true},
		{"no flags", 5, 2, false, false, false},
		{"auto disabled below threshold", 0, 2, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.Product{
				Quantity:   tt.quantity,
				Threshold:  tt.threshold,
				AutoList:   tt.auto,
				ManualList: tt.manual,
			}
			if got := OnList(p); got != tt.want {
				t.Errorf("OnList = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUrgent(t *testing.T) {
	if !Urgent(model.Product{Quantity: 0}) {
		t.Error("quantity 0 must be urgent")
	}
	if Urgent(model.Product{Quantity: 1}) {
		t.Error("quantity 1 must not be urgent")
	}
}

func TestSortQuantityThenName(t *testing.T) {
	products := []model.Product{
		{Name: "Pasta", Quantity: 2},
		{Name: "Arroz", Quantity: 0},
		{Name: "Leche", Quantity: 2},
		{Name: "Huevos", Quantity: 1},
	}
	Sort(products, NewCollator(language.Spanish))

	want := []string{"Arroz", "Huevos", "Leche", "Pasta"}
	for i, name := range want {
		if products[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, products[i].Name, name)
		}
	}
}

func TestSortLocaleAware(t *testing.T) {
	// Spanish collation orders ñ after n and before o; byte ordering would
	// push it past z.
	products := []model.Product{
		{Name: "orégano", Quantity: 1},
		{Name: "ñoras", Quantity: 1},
		{Name: "nata", Quantity: 1},
	}
	Sort(products, NewCollator(language.Spanish))

	want := []string{"nata", "ñoras", "orégano"}
	for i, name := range want {
		if products[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, products[i].Name, name)
		}
	}
}

func TestSelect(t *testing.T) {
	products := []model.Product{
		{Name: "Pasta", Quantity: 9, Threshold: 2, AutoList: true},
		{Name: "Arroz", Quantity: 1, Threshold: 2, AutoList: true},
		{Name: "Sal", Quantity: 7, Threshold: 2, ManualList: true},
	}
	listed := Select(products, NewCollator(language.Spanish))

	if len(listed) != 2 {
		t.Fatalf("listed = %d, want 2", len(listed))
	}
	if listed[0].Name != "Arroz" || listed[1].Name != "Sal" {
		t.Errorf("order = %q, %q; want Arroz, Sal", listed[0].Name, listed[1].Name)
	}
}
