package viewstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	assert.True(t, Loading[int]().IsLoading())
	assert.True(t, Empty[int]().IsEmpty())

	s := Success([]string{"a"})
	assert.True(t, s.IsSuccess())
	assert.Equal(t, []string{"a"}, s.Data)

	cause := errors.New("disk gone")
	f := Failure[[]string](cause, "")
	assert.True(t, f.IsError())
	assert.ErrorIs(t, f.Err, cause)
	assert.Nil(t, f.Data)
}

func TestErrorText(t *testing.T) {
	cause := errors.New("disk gone")
	assert.Equal(t, "Unable to load", Failure[int](cause, "Unable to load").ErrorText())
	assert.Equal(t, "disk gone", Failure[int](cause, "").ErrorText())
	assert.Equal(t, "something went wrong", Failure[int](nil, "").ErrorText())
	assert.Equal(t, "", Success(1).ErrorText())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "loading", KindLoading.String())
	assert.Equal(t, "empty", KindEmpty.String())
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "error", KindError.String())
}
