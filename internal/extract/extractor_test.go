package extract

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/mvcwatch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// buildDocument はテスト用のHTMLドキュメントを組み立てるヘルパー。
func buildDocument(scriptBody string) string {
	return `<!DOCTYPE html>
<html>
<head><title>Appointment Wizard</title>
<script src="/js/site.js"></script>
</head>
<body>
<div id="wizard"></div>
<script>
` + scriptBody + `
</script>
</body>
</html>`
}

const validScriptBody = `
var locationData = [{"Id":101,"Name":"Newark - Real ID","City":"Newark"},{"Id":102,"Name":"Bayonne - Real ID","City":"Bayonne"}];
var timeData = [{"LocationId":101,"FirstOpenSlot":"1 Appointments Available <br/> Next Available: 07/16/2025 01:55 PM"},{"LocationId":102,"FirstOpenSlot":"No Appointments Available"}]
var locationModel = {};
`

func TestExtract_WellFormedDocument(t *testing.T) {
	e := NewExtractor(discardLogger())

	locations, slots, err := e.Extract(buildDocument(validScriptBody))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(locations) != 2 {
		t.Fatalf("len(locations) = %d, want 2", len(locations))
	}
	if locations[0].ID != 101 || locations[0].Name != "Newark - Real ID" {
		t.Errorf("locations[0] = %+v, want {101 Newark - Real ID}", locations[0])
	}
	if locations[1].ID != 102 || locations[1].Name != "Bayonne - Real ID" {
		t.Errorf("locations[1] = %+v, want {102 Bayonne - Real ID}", locations[1])
	}

	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	wantText := "1 Appointments Available <br/> Next Available: 07/16/2025 01:55 PM"
	if slots[0].LocationID != 101 || slots[0].Text != wantText {
		t.Errorf("slots[0] = %+v, want {101 %q}", slots[0], wantText)
	}
}

func TestExtract_MarkerMissing_ReturnsStructureNotFound(t *testing.T) {
	e := NewExtractor(discardLogger())

	doc := buildDocument(`var somethingElse = [{"Id":1}];`)
	_, _, err := e.Extract(doc)

	if !errors.Is(err, model.ErrStructureNotFound) {
		t.Errorf("error = %v, want ErrStructureNotFound", err)
	}
}

func TestExtract_NoScriptTagsAtAll_ReturnsStructureNotFound(t *testing.T) {
	e := NewExtractor(discardLogger())

	_, _, err := e.Extract("<html><body><p>maintenance page</p></body></html>")

	if !errors.Is(err, model.ErrStructureNotFound) {
		t.Errorf("error = %v, want ErrStructureNotFound", err)
	}
}

func TestExtract_MalformedLocationJSON_ReturnsMalformedData(t *testing.T) {
	e := NewExtractor(discardLogger())

	// マーカーは存在するがJSONとして壊れている
	doc := buildDocument(`var locationData = [{"Id":101,"Name":"Newark - Real ID",}];`)
	_, _, err := e.Extract(doc)

	if !errors.Is(err, model.ErrMalformedData) {
		t.Errorf("error = %v, want ErrMalformedData", err)
	}
}

func TestExtract_LocationDataWithoutTerminator_ReturnsMalformedData(t *testing.T) {
	e := NewExtractor(discardLogger())

	// セミコロン終端が無いためリテラルを切り出せない
	doc := buildDocument(`var locationData = [{"Id":101,"Name":"Newark - Real ID"}]`)
	_, _, err := e.Extract(doc)

	if !errors.Is(err, model.ErrMalformedData) {
		t.Errorf("error = %v, want ErrMalformedData", err)
	}
}

func TestExtract_EntryMissingIdOrName_IsDropped(t *testing.T) {
	e := NewExtractor(discardLogger())

	doc := buildDocument(`
var locationData = [{"Id":101,"Name":"Newark - Real ID"},{"Id":0,"Name":"Ghost Office"},{"Id":103,"Name":""},{"Name":"No Id Office"}];
var timeData = [{"LocationId":101,"FirstOpenSlot":"No Appointments Available"}]
var locationModel = {};
`)

	locations, _, err := e.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v (bad entries must not fail the run)", err)
	}
	if len(locations) != 1 {
		t.Fatalf("len(locations) = %d, want 1: %+v", len(locations), locations)
	}
	if locations[0].ID != 101 {
		t.Errorf("locations[0].ID = %d, want 101", locations[0].ID)
	}
}

func TestExtract_TimeDataMissing_DegradesToEmptySlots(t *testing.T) {
	e := NewExtractor(discardLogger())

	doc := buildDocument(`var locationData = [{"Id":101,"Name":"Newark - Real ID"}];`)

	locations, slots, err := e.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v (missing timeData must not fail the run)", err)
	}
	if len(locations) != 1 {
		t.Errorf("len(locations) = %d, want 1", len(locations))
	}
	if len(slots) != 0 {
		t.Errorf("len(slots) = %d, want 0", len(slots))
	}
}

func TestExtract_TimeDataMalformedJSON_DegradesToEmptySlots(t *testing.T) {
	e := NewExtractor(discardLogger())

	doc := buildDocument(`
var locationData = [{"Id":101,"Name":"Newark - Real ID"}];
var timeData = [{"LocationId":101,]
var locationModel = {};
`)

	_, slots, err := e.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v (malformed timeData must not fail the run)", err)
	}
	if len(slots) != 0 {
		t.Errorf("len(slots) = %d, want 0", len(slots))
	}
}

func TestExtract_TimeDataTerminatedBySemicolon_IsAccepted(t *testing.T) {
	e := NewExtractor(discardLogger())

	// locationModel宣言ではなくセミコロンで終端される変種
	doc := buildDocument(`
var locationData = [{"Id":101,"Name":"Newark - Real ID"}];
var timeData = [{"LocationId":101,"FirstOpenSlot":"1 Appointments Available <br/> Next Available: 07/19/2025 09:40 AM"}];
`)

	_, slots, err := e.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if slots[0].LocationID != 101 {
		t.Errorf("slots[0].LocationID = %d, want 101", slots[0].LocationID)
	}
}

func TestExtract_MarkerInSecondScriptTag_IsFound(t *testing.T) {
	e := NewExtractor(discardLogger())

	doc := `<html><head><script>var analytics = true;</script></head>
<body><script>
var locationData = [{"Id":7,"Name":"Edison - Real ID"}];
var timeData = [{"LocationId":7,"FirstOpenSlot":"No Appointments Available"}]
var locationModel = {};
</script></body></html>`

	locations, _, err := e.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(locations) != 1 || locations[0].ID != 7 {
		t.Errorf("locations = %+v, want single record with ID 7", locations)
	}
}

func TestExtract_IsDeterministic(t *testing.T) {
	e := NewExtractor(discardLogger())
	doc := buildDocument(validScriptBody)

	loc1, slots1, err1 := e.Extract(doc)
	loc2, slots2, err2 := e.Extract(doc)

	if err1 != nil || err2 != nil {
		t.Fatalf("Extract() errors = %v, %v", err1, err2)
	}
	if len(loc1) != len(loc2) || len(slots1) != len(slots2) {
		t.Fatal("repeated extraction produced different lengths")
	}
	for i := range loc1 {
		if loc1[i] != loc2[i] {
			t.Errorf("locations[%d] differs between runs: %+v != %+v", i, loc1[i], loc2[i])
		}
	}
	for i := range slots1 {
		if slots1[i] != slots2[i] {
			t.Errorf("slots[%d] differs between runs: %+v != %+v", i, slots1[i], slots2[i])
		}
	}
}
