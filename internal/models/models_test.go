package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDecodeListDropsInvalid(t *testing.T) {
	t.Parallel()
	raw := []json.RawMessage{
		json.RawMessage(`{"docId":"p1","unitNumber":"1204","primaryPrice":"1250000.50","views":["Sea","Marina"]}`),
		json.RawMessage(`{"unitNumber":"no-id"}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"docId":"p2","rent":95000,"createdAt":"2025-02-01T10:00:00Z"}`),
	}
	got, dropped := DecodeList[Property](raw)
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(got) != 2 || got[0].ID() != "p1" || got[1].ID() != "p2" {
		t.Fatalf("decoded = %+v", got)
	}
	price, ok := got[0].Field("primaryPrice")
	if !ok || !price.(decimal.Decimal).Equal(decimal.RequireFromString("1250000.50")) {
		t.Errorf("primaryPrice = %v, %v", price, ok)
	}
	if _, ok := got[1].Field("unitNumber"); ok {
		t.Error("unitNumber should be absent")
	}
	created, _ := got[1].Field("createdAt")
	if !created.(time.Time).Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", created)
	}
}

func TestRefFieldUsesName(t *testing.T) {
	t.Parallel()
	l := &Listing{DocID: "l1", Agent: &Ref{DocID: "a1", Name: "Sara"}, Property: &Ref{DocID: "p1"}}
	if v, ok := l.Field("agent"); !ok || v != "Sara" {
		t.Errorf("agent = %v, %v", v, ok)
	}
	if _, ok := l.Field("property"); ok {
		t.Error("nameless ref should be absent")
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{[]string{"Pool", "Gym"}, "Pool, Gym"},
		{decimal.NewFromFloat(12.5), "12.50"},
		{7, "7"},
		{nil, ""},
	}
	for _, c := range cases {
		if got := FormatValue(c.in); got != c.want {
			t.Errorf("FormatValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDecodeListToleratesLooseShapes(t *testing.T) {
	t.Parallel()
	raw := []json.RawMessage{
		json.RawMessage(`{"docId":"p1","bedrooms":3}`),
		json.RawMessage(`{"docId":"p2","floor":12,"unitNumber":1204}`),
		json.RawMessage(`{"docId":"p3","vacateDate":"2025-03-10"}`),
		json.RawMessage(`{"docId":"p4","listingDate":1741564800000}`),
		json.RawMessage(`{"docId":"p5","createdAt":"not a date","bedrooms":{"min":1}}`),
	}
	got, dropped := DecodeList[Property](raw)
	if dropped != 0 || len(got) != len(raw) {
		t.Fatalf("kept %d dropped %d, want %d kept", len(got), dropped, len(raw))
	}

	cases := []struct {
		rec  int
		key  string
		want any
	}{
		{0, "bedrooms", "3"},
		{1, "floor", "12"},
		{1, "unitNumber", "1204"},
		{2, "vacateDate", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{3, "listingDate", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		v, ok := got[c.rec].Field(c.key)
		if !ok {
			t.Errorf("%s[%s] absent", got[c.rec].ID(), c.key)
			continue
		}
		if want, isTime := c.want.(time.Time); isTime {
			if !v.(time.Time).Equal(want) {
				t.Errorf("%s[%s] = %v, want %v", got[c.rec].ID(), c.key, v, want)
			}
			continue
		}
		if v != c.want {
			t.Errorf("%s[%s] = %v, want %v", got[c.rec].ID(), c.key, v, c.want)
		}
	}

	for _, key := range []string{"createdAt", "bedrooms"} {
		if v, ok := got[4].Field(key); ok {
			t.Errorf("p5[%s] = %v, want absent", key, v)
		}
	}
}

func TestDateLayouts(t *testing.T) {
	t.Parallel()
	want := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	for _, in := range []string{
		`"2025-03-10T08:30:00Z"`,
		`"2025-03-10T12:30:00+04:00"`,
		`"2025-03-10 08:30:00"`,
		`1741595400000`,
		`"1741595400000"`,
	} {
		var d Date
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if !d.Equal(want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", in, d.Time, want)
		}
	}

	var d Date
	if err := json.Unmarshal([]byte(`"soon"`), &d); err != nil || d.Std() != nil {
		t.Errorf("Unmarshal(soon) = %v, %v; want zero", d.Std(), err)
	}
	var nilDate *Date
	if nilDate.Std() != nil {
		t.Error("nil Date Std() != nil")
	}
}

func TestTextAcceptsScalars(t *testing.T) {
	t.Parallel()
	cases := map[string]Text{
		`"12B"`: "12B",
		`12`:    "12",
		`2.5`:   "2.5",
		`true`:  "true",
		`null`:  "",
		`[1,2]`: "",
	}
	for in, want := range cases {
		var got Text
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Unmarshal(%s) = %q, want %q", in, got, want)
		}
	}
}
