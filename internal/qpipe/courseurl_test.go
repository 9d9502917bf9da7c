package qpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCourseURLParsesCourseware(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	assert.Equal(t, "Week_1", u.Unit)
	assert.Equal(t, "Circuits", u.SubUnit)
	assert.Equal(t, "3", u.Seq)
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/", u.URL())
	assert.Equal(t, u.URL(), u.String())
}

func TestNewCourseURLDefaultsRelativeSubUnitToSeqOne(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits")
	assert.Equal(t, "1", u.Seq)
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/1/", u.URL())
}

func TestNewCourseURLKeepsParsedSeqOnRelativeURL(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	assert.Equal(t, "3", u.Seq)
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/", u.URL())
}

func TestNewCourseURLParsesBook(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/book/1/20/")
	assert.Equal(t, "1", u.BookNum)
	assert.Equal(t, "20", u.Page)
}

func TestNewCourseURLSanitizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "query parameters stripped",
			raw:  "https://www.edx.org/courses/MITx/6.002x/info?foo=1",
			want: "https://www.edx.org/courses/MITx/6.002x/info/",
		},
		{
			name: "anchor stripped",
			raw:  "https://www.edx.org/courses/MITx/6.002x/info#section",
			want: "https://www.edx.org/courses/MITx/6.002x/info/",
		},
		{
			name: "trailing answer segment stripped",
			raw:  "https://www.edx.org/courses/MITx/6.002x/answer_2",
			want: "https://www.edx.org/courses/MITx/6.002x/",
		},
		{
			name: "stray double slash truncates",
			raw:  "https://www.edx.org/courses//MITx/6.002x/info",
			want: "https://www.edx.org/courses/",
		},
		{
			name: "trailing slash appended",
			raw:  "https://www.edx.org/courses/MITx",
			want: "https://www.edx.org/courses/MITx/",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewCourseURL(tt.raw).URL())
		})
	}
}

func TestNewCourseURLRejectsNonURL(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("not a url")
	assert.Empty(t, u.URL())
	assert.Empty(t, u.Unit)
	assert.Empty(t, u.String())
}

func TestCourseURLUnknownSequenceSentinel(t *testing.T) {
	t.Parallel()

	// Absolute URLs do not get the default sequence number, so a sub-unit
	// level URL may legitimately have an unknown sequence.
	u := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/")
	assert.Equal(t, "Circuits", u.SubUnit)
	assert.Empty(t, u.Seq)
	assert.Equal(t, u.URL()+"_/", u.String())
}

func TestCourseURLSetSeq(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	u.SetSeq("5")
	assert.Equal(t, "5", u.Seq)
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/5/", u.URL())

	// Setting a sequence where none was known inserts it after the sub-unit.
	v := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/")
	v.SetSeq("2")
	assert.Equal(t, "https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/2/", v.URL())

	// No sub-unit, no sequence number.
	w := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/info/")
	w.SetSeq("4")
	assert.Empty(t, w.Seq)
}

func TestCourseURLSetPage(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/book/1/20/")
	u.SetPage("30")
	assert.Equal(t, "30", u.Page)
	assert.Equal(t, "https://www.edx.org/courses/MITx/6.002x/2013_Spring/book/1/30/", u.URL())

	// An empty page is a no-op rather than a corrupting rewrite.
	u.SetPage("")
	assert.Equal(t, "30", u.Page)
}

func TestCourseURLBaseURL(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/", u.BaseURL())
}

func TestCourseURLCopyIsIndependent(t *testing.T) {
	t.Parallel()

	u := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	c := u.Copy()
	c.SetSeq("7")

	assert.Equal(t, "3", u.Seq)
	assert.Equal(t, "7", c.Seq)
	assert.NotEqual(t, u.URL(), c.URL())
}
