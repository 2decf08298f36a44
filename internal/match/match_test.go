package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/match"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func newMatcher(t *testing.T, records ...*store.InventoryRecord) *match.Matcher {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedInventory(t, st, records...)
	return match.New(st, cfg, nil)
}

func record(name, unit, address string, area float64) *store.InventoryRecord {
	return &store.InventoryRecord{
		Name:    name,
		Unit:    unit,
		Address: address,
		Rent:    78000,
		Area:    area,
		Layout:  "1LDK",
		Company: "株式会社コスモ不動産 045-123-4567",
		Region:  "神奈川県",
	}
}

func TestMatchExactName(t *testing.T) {
	m := newMatcher(t,
		record("グランドメゾン青葉台", "203", "神奈川県横浜市青葉区青葉台2-10-5", 40.5),
		record("コーポしらとり", "101", "神奈川県横浜市青葉区しらとり台30-12", 19.8),
	)

	attrs := &listing.Attributes{
		Name:    "グランドメゾン青葉台　２０３号室",
		Address: "神奈川県横浜市青葉区青葉台2-10-5",
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "グランドメゾン青葉台" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchNameSimilarity(t *testing.T) {
	m := newMatcher(t,
		record("グランドメゾン青葉台", "203", "神奈川県横浜市青葉区青葉台2-10-5", 40.5),
	)

	attrs := &listing.Attributes{Name: "グランドメゾン青葉台A"}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "グランドメゾン青葉台" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchNameContainment(t *testing.T) {
	m := newMatcher(t,
		record("青葉台マンション第2グリーンハイツ", "305", "神奈川県横浜市青葉区青葉台1-5", 52.3),
	)

	attrs := &listing.Attributes{Name: "青葉台マンション"}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "青葉台マンション第2グリーンハイツ" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchDistrictAndArea(t *testing.T) {
	m := newMatcher(t,
		record("ハイムたちばな", "102", "神奈川県横浜市青葉区美しが丘2-10-5", 40.5),
		record("コーポさくら", "201", "神奈川県横浜市青葉区美しが丘2-8-1", 55.0),
		record("レジデンス市が尾", "301", "神奈川県横浜市青葉区市ケ尾町1063", 40.5),
	)

	// Obfuscated name, so only district plus area can decide.
	attrs := &listing.Attributes{
		Name:    "●●●マンション",
		Address: "横浜市青葉区美しが丘2丁目",
		Area:    40.2,
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "ハイムたちばな" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchDistrictTieBreakBuildYear(t *testing.T) {
	a := record("ハイムたちばな", "102", "神奈川県横浜市青葉区美しが丘2-10-5", 40.5)
	a.Built = "1992年3月"
	b := record("コーポさくら", "201", "神奈川県横浜市青葉区美しが丘2-8-1", 40.8)
	b.Built = "2015年6月"
	m := newMatcher(t, a, b)

	attrs := &listing.Attributes{
		Name:      "●●●",
		Address:   "神奈川県横浜市青葉区美しが丘2-99",
		Area:      40.6,
		BuiltText: "築11年",
		BuildYear: 2015,
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "コーポさくら" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchDistrictTieBreakClosestArea(t *testing.T) {
	m := newMatcher(t,
		record("ハイムたちばな", "102", "神奈川県横浜市青葉区美しが丘2-10-5", 40.9),
		record("コーポさくら", "201", "神奈川県横浜市青葉区美しが丘2-8-1", 40.3),
	)

	attrs := &listing.Attributes{
		Name:    "●●●",
		Address: "神奈川県横浜市青葉区美しが丘2-50",
		Area:    40.2,
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "コーポさくら" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchNeverReturnsEnded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedInventory(t, st,
		record("グランドメゾン青葉台", "203", "神奈川県横浜市青葉区青葉台2-10-5", 40.5),
	)
	ctx := context.Background()
	if _, err := st.MarkInventoryEndedBefore(ctx, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("mark ended: %v", err)
	}

	m := match.New(st, cfg, nil)
	attrs := &listing.Attributes{
		Name:    "グランドメゾン青葉台",
		Address: "神奈川県横浜市青葉区青葉台2-10-5",
		Area:    40.5,
	}
	rec, err := m.Match(ctx, attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec != nil {
		t.Fatalf("ended record must never match, got %+v", rec)
	}
}

func TestMatchFallbackScore(t *testing.T) {
	m := newMatcher(t,
		record("メゾン・ド・しらとり台ハイツ", "101", "神奈川県横浜市青葉区しらとり台30-12", 26.4),
		record("サンライズ鴨志田", "202", "神奈川県横浜市青葉区鴨志田町550", 31.0),
	)

	// Name drifted too far for the name strategy and no usable area, so
	// only the weighted fallback can answer.
	attrs := &listing.Attributes{
		Name:    "メゾンしらとり台ハイツ",
		Address: "神奈川県横浜市青葉区しらとり台30",
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec == nil || rec.Name != "メゾン・ド・しらとり台ハイツ" {
		t.Fatalf("unexpected match: %+v", rec)
	}
}

func TestMatchFallbackRejectsWeakScore(t *testing.T) {
	m := newMatcher(t,
		record("サンライズ鴨志田", "202", "神奈川県横浜市青葉区鴨志田町550", 31.0),
	)

	// Same locality pulls the row into the candidate set, but nothing else
	// lines up, so the score stays under the acceptance threshold.
	attrs := &listing.Attributes{
		Name:    "パレス多摩川",
		Address: "神奈川県横浜市青葉区鴨志田町",
		Area:    55.0,
	}
	rec, err := m.Match(context.Background(), attrs)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if rec != nil {
		t.Fatalf("weak candidate must not match, got %+v", rec)
	}
}

func TestMatchMalformedInput(t *testing.T) {
	m := newMatcher(t,
		record("グランドメゾン青葉台", "203", "神奈川県横浜市青葉区青葉台2-10-5", 40.5),
	)

	cases := []*listing.Attributes{
		nil,
		{},
		{Name: "！！？？", Address: "？？？", RentText: "応相談"},
	}
	for i, attrs := range cases {
		rec, err := m.Match(context.Background(), attrs)
		if err != nil {
			t.Fatalf("case %v: match must not fail on malformed input: %v", i, err)
		}
		if rec != nil {
			t.Fatalf("case %v: unexpected match: %+v", i, rec)
		}
	}
}
