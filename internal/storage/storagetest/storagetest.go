// Package storagetest holds the behaviour every storage.Storage backend
// must show. Backend packages call Run from their own tests.
package storagetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/types"
)

// Run exercises s. newStore must return an empty store per call.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("CreateThenGet", func(t *testing.T) { testCreateThenGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("UpdateKeepsImage", func(t *testing.T) { testUpdateKeepsImage(t, newStore(t)) })
	t.Run("UpdateReplacesImage", func(t *testing.T) { testUpdateReplacesImage(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("IDsNotReused", func(t *testing.T) { testIDsNotReused(t, newStore(t)) })
	t.Run("DuplicateEmailAllowed", func(t *testing.T) { testDuplicateEmailAllowed(t, newStore(t)) })
	t.Run("ProfileImages", func(t *testing.T) { testProfileImages(t, newStore(t)) })
}

func ptr(s string) *string { return &s }

func ada() types.Student {
	return types.Student{Name: "Ada", Email: "ada@x.com", Age: 30, Gender: types.GenderFemale}
}

func testCreateThenGet(t *testing.T, s storage.Storage) {
	id, err := s.CreateStudent(ada())
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.GetStudentByID(id)
	require.NoError(t, err)

	want := ada()
	want.ID = id
	assert.Equal(t, want, got)
	assert.Nil(t, got.ProfileImage)

	withImage := ada()
	withImage.Email = "ada2@x.com"
	withImage.ProfileImage = ptr("a.png")
	id2, err := s.CreateStudent(withImage)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	got, err = s.GetStudentByID(id2)
	require.NoError(t, err)
	require.NotNil(t, got.ProfileImage)
	assert.Equal(t, "a.png", *got.ProfileImage)
}

func testGetMissing(t *testing.T, s storage.Storage) {
	_, err := s.GetStudentByID(999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListEmpty(t *testing.T, s storage.Storage) {
	all, err := s.GetStudents()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func testSearch(t *testing.T, s storage.Storage) {
	for _, name := range []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "100% Real"} {
		st := ada()
		st.Name = name
		_, err := s.CreateStudent(st)
		require.NoError(t, err)
	}

	all, err := s.GetStudents()
	require.NoError(t, err)
	require.Len(t, all, 4)

	everyone, err := s.SearchStudents("")
	require.NoError(t, err)
	assert.ElementsMatch(t, all, everyone)

	names := func(list []types.Student) []string {
		out := make([]string, 0, len(list))
		for _, st := range list {
			out = append(out, st.Name)
		}
		return out
	}

	got, err := s.SearchStudents("Hop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace Hopper"}, names(got))

	got, err = s.SearchStudents("a")
	require.NoError(t, err)
	assert.Subset(t, names(got), []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "100% Real"})

	// Wildcards are literal.
	got, err = s.SearchStudents("%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Real"}, names(got))

	got, err = s.SearchStudents("_")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.SearchStudents("nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testUpdateKeepsImage(t *testing.T, s storage.Storage) {
	st := ada()
	st.ProfileImage = ptr("old.png")
	id, err := s.CreateStudent(st)
	require.NoError(t, err)

	changed := ada()
	changed.Age = 31
	previous, err := s.UpdateStudentByID(id, changed)
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "old.png", *previous)

	got, err := s.GetStudentByID(id)
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@x.com", got.Email)
	assert.Equal(t, types.GenderFemale, got.Gender)
	require.NotNil(t, got.ProfileImage)
	assert.Equal(t, "old.png", *got.ProfileImage)
}

func testUpdateReplacesImage(t *testing.T, s storage.Storage) {
	id, err := s.CreateStudent(ada())
	require.NoError(t, err)

	changed := types.Student{Name: "Ada K", Email: "k@x.com", Age: 40, Gender: types.GenderMale, ProfileImage: ptr("new.png")}
	previous, err := s.UpdateStudentByID(id, changed)
	require.NoError(t, err)
	assert.Nil(t, previous)

	got, err := s.GetStudentByID(id)
	require.NoError(t, err)
	changed.ID = id
	assert.Equal(t, changed, got)
}

func testUpdateMissing(t *testing.T, s storage.Storage) {
	_, err := s.UpdateStudentByID(42, ada())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s storage.Storage) {
	st := ada()
	st.ProfileImage = ptr("gone.png")
	id, err := s.CreateStudent(st)
	require.NoError(t, err)
	plainID, err := s.CreateStudent(ada())
	require.NoError(t, err)

	previous, err := s.DeleteStudentByID(id)
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "gone.png", *previous)

	_, err = s.GetStudentByID(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	previous, err = s.DeleteStudentByID(plainID)
	require.NoError(t, err)
	assert.Nil(t, previous)

	_, err = s.DeleteStudentByID(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testIDsNotReused(t *testing.T, s storage.Storage) {
	first, err := s.CreateStudent(ada())
	require.NoError(t, err)
	_, err = s.DeleteStudentByID(first)
	require.NoError(t, err)

	second, err := s.CreateStudent(ada())
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func testDuplicateEmailAllowed(t *testing.T, s storage.Storage) {
	_, err := s.CreateStudent(ada())
	require.NoError(t, err)
	_, err = s.CreateStudent(ada())
	assert.NoError(t, err)
}

func testProfileImages(t *testing.T, s storage.Storage) {
	for _, ref := range []*string{ptr("a.png"), nil, ptr("b.jpg")} {
		st := ada()
		st.ProfileImage = ref
		_, err := s.CreateStudent(st)
		require.NoError(t, err)
	}

	refs, err := s.ProfileImages()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.png", "b.jpg"}, refs)
}
