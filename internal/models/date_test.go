package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.May, 1)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-05-01"` {
		t.Fatalf("ожидали \"2024-05-01\", получили %s", b)
	}

	var got Date
	if err := json.Unmarshal([]byte(`"2024-05-01T10:30:00.000Z"`), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(d) {
		t.Fatalf("ISO-строка должна усекаться до даты, получили %s", got)
	}
	if err := json.Unmarshal([]byte(`"01/05/2024"`), &got); err == nil {
		t.Fatal("ожидали ошибку формата")
	}
}

func TestDate_Ordering(t *testing.T) {
	a, b := MustParseDate("2024-01-03"), MustParseDate("2024-01-01")
	if !a.After(b) || a.Compare(b) <= 0 || !b.AddDays(2).Equal(a) {
		t.Fatal("неверный порядок дат")
	}
	if (Date{}).String() != "" || !(Date{}).IsZero() {
		t.Fatal("нулевая дата")
	}
	local := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	if DateOf(local).String() != "2024-03-05" {
		t.Fatalf("день берётся в зоне времени, получили %s", DateOf(local))
	}
}
