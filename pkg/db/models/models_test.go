package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamImageData(t *testing.T) {
	e := &Exam{Stage: StageCompleted}
	assert.False(t, e.HasImageData())

	e.Downloaded = true
	assert.True(t, e.HasImageData())

	// Exams that never completed have nothing to fetch.
	assert.True(t, (&Exam{Stage: StageNotApplicable}).HasImageData())
	assert.True(t, (&Exam{}).HasImageData())
}

func TestExamLaterality(t *testing.T) {
	assert.False(t, (&Exam{}).HasLaterality())
	assert.False(t, (&Exam{Laterality: "None"}).HasLaterality())
	assert.True(t, (&Exam{Laterality: LateralityLeft}).HasLaterality())

	e := &Exam{Laterality: ""}
	assert.Equal(t, LateralityNone, e.Columns()["laterality"])
}

func TestExamValidate(t *testing.T) {
	e := &Exam{InterviewID: 1, ModalityID: 1, Type: "RetinalScan", Laterality: LateralityRight}
	assert.NoError(t, e.Validate())

	e.Laterality = "both"
	assert.Error(t, e.Validate())

	assert.Error(t, (&Exam{ModalityID: 1, Type: "RetinalScan"}).Validate())
}

func TestRatingValidate(t *testing.T) {
	r := &Rating{UserID: 1, ImageID: 1}
	assert.NoError(t, r.Validate())
	assert.False(t, r.IsRated())

	for _, v := range []int64{MinRating, MaxRating} {
		v := v
		r.Rating = &v
		assert.NoError(t, r.Validate())
		assert.True(t, r.IsRated())
	}

	for _, v := range []int64{0, MaxRating + 1, -1} {
		v := v
		r.Rating = &v
		assert.Error(t, r.Validate(), "rating %d", v)
	}
}

func TestUserPassword(t *testing.T) {
	u := &User{}
	assert.ErrorIs(t, u.SetName("   "), ErrEmptyName)
	require.NoError(t, u.SetName(" reviewer "))
	assert.Equal(t, "reviewer", u.Name)

	assert.False(t, u.CheckPassword(""))
	require.NoError(t, u.SetPassword("secret"))
	assert.NotEqual(t, "secret", u.Password)
	assert.True(t, u.CheckPassword("secret"))
	assert.False(t, u.CheckPassword("Secret"))
	assert.NoError(t, u.Validate())

	u.Password = "hunter2"
	err := u.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrPasswordNotHashed.Error())
}

func TestUserLastInterview(t *testing.T) {
	u := &User{}
	u.SetLastInterview(&Interview{ID: 7})
	require.NotNil(t, u.InterviewID)
	assert.EqualValues(t, 7, *u.InterviewID)

	u.SetLastInterview(&Interview{})
	assert.Nil(t, u.InterviewID)
}

func TestImageParent(t *testing.T) {
	i := &Image{}
	i.SetParent(&Image{ID: 3})
	assert.True(t, i.HasParent())
	assert.EqualValues(t, 3, *i.ParentImageID)

	i.SetParent(&Image{})
	assert.False(t, i.HasParent())

	i.SetDimensionality(3)
	assert.EqualValues(t, 3, *i.Dimensionality)
}

func TestInterviewVisitDate(t *testing.T) {
	i := &Interview{}
	i.Assign(map[string]any{"id": int64(1), "uid": "A100", "visit_date": time.Date(2015, 3, 2, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, "2015-03-02", i.VisitDate)
	assert.True(t, i.IsLoaded())

	visit, err := i.Visit()
	require.NoError(t, err)
	assert.Equal(t, "2015-03-02", FormatVisitDate(visit))

	var missing *Interview
	assert.False(t, missing.IsLoaded())
}

func TestKinds(t *testing.T) {
	for _, kind := range []Kind{KindInterview, KindExam, KindImage, KindModality, KindRating, KindUser} {
		e, err := New(kind)
		require.NoError(t, err)

		back, ok := KindOf(e.TableName())
		require.True(t, ok)
		assert.Equal(t, kind, back)
		assert.Equal(t, e.TableName(), kind.String())
	}

	_, err := New(Kind(99))
	assert.Error(t, err)

	_, ok := KindOf("user_modalities")
	assert.False(t, ok)
}
