package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
)

const twoRecordDoc = `[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b"},` +
	`{"name":"c","sender":"t","subject":"sv","preview":"q","body":"d","date":"2024-01-02"}]`

// recordingSink captures every notification for assertions.
type recordingSink struct {
	counts   []int
	emails   [][]domain.Email
	failures []*domain.ParseFailure
}

func (s *recordingSink) ReportProgress(emails []domain.Email, count int) {
	s.counts = append(s.counts, count)
	s.emails = append(s.emails, emails)
}

func (s *recordingSink) ReportFailure(f *domain.ParseFailure) {
	s.failures = append(s.failures, f)
}

func newTestAccumulator(t *testing.T) (*Accumulator, *recordingSink) {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	sink := &recordingSink{}
	return NewAccumulator(v, sink), sink
}

func TestAccumulator_ByteByByteChunking(t *testing.T) {
	acc, sink := newTestAccumulator(t)

	for i := 0; i < len(twoRecordDoc); i++ {
		acc.Append(twoRecordDoc[i : i+1])
	}

	emails, err := acc.Finalize()
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "a", emails[0].Name)
	assert.Equal(t, "c", emails[1].Name)
	assert.Equal(t, "2024-01-02", emails[1].Date)

	// Progress counts are monotonically non-decreasing and emitted
	// only on strict growth, so they are strictly increasing.
	require.NotEmpty(t, sink.counts)
	for i := 1; i < len(sink.counts); i++ {
		assert.Greater(t, sink.counts[i], sink.counts[i-1])
	}
	assert.Equal(t, 2, sink.counts[len(sink.counts)-1])
	assert.Empty(t, sink.failures)
}

func TestAccumulator_SingleChunkMatchesByteChunking(t *testing.T) {
	whole, _ := newTestAccumulator(t)
	whole.Append(twoRecordDoc)
	wholeEmails, err := whole.Finalize()
	require.NoError(t, err)

	byByte, _ := newTestAccumulator(t)
	for i := 0; i < len(twoRecordDoc); i++ {
		byByte.Append(twoRecordDoc[i : i+1])
	}
	byteEmails, err := byByte.Finalize()
	require.NoError(t, err)

	assert.Equal(t, wholeEmails, byteEmails)
}

func TestAccumulator_NoProgressWithoutGrowth(t *testing.T) {
	acc, sink := newTestAccumulator(t)

	acc.Append(`[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b"}`)
	require.Equal(t, []int{1}, sink.counts)

	// More bytes arrive but no new complete record: no new event.
	acc.Append(`,{"name":"part`)
	assert.Equal(t, []int{1}, sink.counts)

	acc.Append(`ial","sender":"x","subject":"y","preview":"z","body":"w"}`)
	assert.Equal(t, []int{1, 2}, sink.counts)
}

func TestAccumulator_InvalidPartialFieldYieldsNoProgress(t *testing.T) {
	acc, sink := newTestAccumulator(t)

	// Well-formed prefix whose record violates the relaxed schema.
	acc.Append(`[{"name":123}`)
	assert.Empty(t, sink.counts)

	// The stream is not aborted; later valid content still progresses
	// once the buffer as a whole parses to something valid. Here it
	// never will, but Append must stay silent rather than fail.
	acc.Append(`]`)
	assert.Empty(t, sink.counts)
}

func TestAccumulator_DanglingObjectExcluded(t *testing.T) {
	acc, sink := newTestAccumulator(t)

	acc.Append(`[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b"},{"name"`)
	require.Equal(t, []int{1}, sink.counts)
	require.Len(t, sink.emails[0], 1)
	assert.Equal(t, "a", sink.emails[0][0].Name)
}

func TestFinalize_ParseFailure(t *testing.T) {
	acc, sink := newTestAccumulator(t)
	acc.Append("not json at all")

	_, err := acc.Finalize()
	require.Error(t, err)

	var pf *domain.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.FailureKindParse, pf.Kind)
	assert.Equal(t, "not json at all", pf.RawText)
	require.Len(t, sink.failures, 1)
	assert.Equal(t, domain.FailureKindParse, sink.failures[0].Kind)
}

func TestFinalize_SchemaFailureOnBadDate(t *testing.T) {
	acc, sink := newTestAccumulator(t)
	acc.Append(`[{"name":"a","sender":"s","subject":"su","preview":"p","body":"b","date":"2024-13-4"}]`)

	_, err := acc.Finalize()
	require.Error(t, err)

	var pf *domain.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.FailureKindSchema, pf.Kind)
	assert.Equal(t, "/0/date", pf.FieldPath)
	require.Len(t, sink.failures, 1)
}

func TestFinalize_MissingRequiredField(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	acc.Append(`[{"name":"a","sender":"s","subject":"su","preview":"p"}]`)

	_, err := acc.Finalize()
	var pf *domain.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.FailureKindSchema, pf.Kind)
}

func TestFinalize_Idempotent(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	acc.Append(twoRecordDoc)

	first, err1 := acc.Finalize()
	second, err2 := acc.Finalize()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestAppend_IgnoredAfterFinalize(t *testing.T) {
	acc, sink := newTestAccumulator(t)
	acc.Append(twoRecordDoc)
	_, err := acc.Finalize()
	require.NoError(t, err)

	before := acc.BufferLen()
	acc.Append("garbage")
	assert.Equal(t, before, acc.BufferLen())
	assert.Empty(t, sink.failures)
}
