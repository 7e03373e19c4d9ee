package reflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/ocrdesk/ocrdesk/pkg/boxtype"
)

func germanDict(t *testing.T) Dictionary {
	t.Helper()
	d, err := LoadWordlist(language.German, strings.NewReader(strings.Join([]string{
		"drei", "erstklassige", "rennpferde", "hat", "commodore",
		"dies", "ist", "wirklich", "ein", "test",
		"das", "tatsächlich",
	}, "\n")))
	require.NoError(t, err)
	return d
}

func TestWordlistCheck(t *testing.T) {
	d := germanDict(t)
	assert.True(t, d.Check("Rennpferde"))
	assert.True(t, d.Check("tatsächlich"))
	assert.True(t, d.Check("wirklich,"))
	assert.False(t, d.Check("Rennpfer"))
	assert.False(t, d.Check(""))
}

func TestUnhyphenateJoinsKnownWord(t *testing.T) {
	d := germanDict(t)
	got := Unhyphenate("Drei erstklassige Rennpfer-\nde hat Commodore", d, Options{})
	assert.Equal(t, "Drei erstklassige Rennpferde hat Commodore", got)
}

func TestUnhyphenateKeepsUnknownHyphen(t *testing.T) {
	d := germanDict(t)
	got := Unhyphenate("ein Fuß-\nball", d, Options{})
	assert.Equal(t, "ein Fuß-ball", got)
}

func TestUnhyphenateUppercaseSuccessorKeepsHyphen(t *testing.T) {
	d := germanDict(t)
	// "Renn-" + "Pferde" would merge to a known word, but the uppercase
	// successor marks a proper-noun compound.
	got := Unhyphenate("Renn-\nPferde laufen", d, Options{})
	assert.Equal(t, "Renn-Pferde laufen", got)
}

func TestUnhyphenateBlacklist(t *testing.T) {
	d := germanDict(t)
	opts := Options{Blacklist: map[string]struct{}{"de": {}}}
	got := Unhyphenate("Rennpfer-\nde hat", d, opts)
	assert.Equal(t, "Rennpfer-de hat", got)
}

func TestUnhyphenatePlainLinesJoinWithSpace(t *testing.T) {
	got := Unhyphenate("erste Zeile\nzweite Zeile", Empty{}, Options{})
	assert.Equal(t, "erste Zeile zweite Zeile", got)
}

func TestUnhyphenateSkipsBlankLines(t *testing.T) {
	got := Unhyphenate("eins\n\nzwei", Empty{}, Options{})
	assert.Equal(t, "eins zwei", got)
}

func textRecord(order int, text string, flows bool) BoxRecord {
	return BoxRecord{
		ID:    "box-" + string(rune('a'+order)),
		Order: order,
		X:     10, Y: 10 + order*100, W: 200, H: 80,
		Type:          boxtype.FlowingText,
		Confidence:    90,
		UserText:      text,
		FlowsIntoNext: flows,
	}
}

func TestMergeBoxesFlowChain(t *testing.T) {
	d := germanDict(t)
	recs := []BoxRecord{
		textRecord(0, "Dies ist wirk-", true),
		textRecord(1, "lich ein Test.", false),
	}
	out := MergeBoxes(recs, d, Options{})
	require.Len(t, out, 1)
	assert.Equal(t, "Dies ist wirklich ein Test.", out[0].Text())
	assert.False(t, out[0].FlowsIntoNext)
}

func TestMergeBoxesThreeBoxChain(t *testing.T) {
	d := germanDict(t)
	recs := []BoxRecord{
		textRecord(0, "Dies ist", true),
		textRecord(1, "tat- ", true),
		textRecord(2, " sächlich ein Test.", false),
	}
	out := MergeBoxes(recs, d, Options{})
	require.Len(t, out, 1)
	assert.Equal(t, "Dies ist tatsächlich ein Test.", out[0].Text())
}

func TestMergeBoxesGeometryAndConfidence(t *testing.T) {
	d := germanDict(t)
	a := textRecord(0, "eins", true)
	a.Confidence = 95
	b := textRecord(1, "zwei", false)
	b.Confidence = 70
	out := MergeBoxes([]BoxRecord{a, b}, d, Options{})
	require.Len(t, out, 1)
	assert.Equal(t, 70.0, out[0].Confidence)
	assert.Equal(t, 10, out[0].X)
	assert.Equal(t, 10, out[0].Y)
	assert.Equal(t, 200, out[0].W)
	assert.Equal(t, 180, out[0].H)
}

func TestMergeBoxesNonTextPassesThrough(t *testing.T) {
	img := BoxRecord{ID: "img", Order: 1, Type: boxtype.FlowingImage, X: 5, Y: 5, W: 50, H: 50}
	recs := []BoxRecord{
		textRecord(0, "davor", true),
		img,
		textRecord(2, "danach", false),
	}
	out := MergeBoxes(recs, Empty{}, Options{})
	require.Len(t, out, 3)
	assert.Equal(t, img, out[1])
	assert.Equal(t, "davor", out[0].Text())
	assert.Equal(t, "danach", out[2].Text())
}

func TestMergeBoxesNonFlowingStaysSeparate(t *testing.T) {
	recs := []BoxRecord{
		textRecord(0, "erster Absatz", false),
		textRecord(1, "zweiter Absatz", false),
	}
	out := MergeBoxes(recs, Empty{}, Options{})
	require.Len(t, out, 2)
}

func TestMergeBoxesIdempotent(t *testing.T) {
	d := germanDict(t)
	recs := []BoxRecord{
		textRecord(0, "Dies ist wirk-", true),
		textRecord(1, "lich ein Test.", false),
		{ID: "img", Order: 2, Type: boxtype.FlowingImage},
		textRecord(3, "Das ist tat-\nsächlich gut.", false),
	}
	once := MergeBoxes(recs, d, Options{})
	twice := MergeBoxes(once, d, Options{})
	assert.Equal(t, once, twice)
}
