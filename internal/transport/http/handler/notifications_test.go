package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ugram-notify/internal/domain"
)

// --- mock ---

type mockProducer struct{ mock.Mock }

func (m *mockProducer) NotifyLike(postOwnerID string, like domain.Like) {
	m.Called(postOwnerID, like)
}

func (m *mockProducer) NotifyComment(postOwnerID string, comment domain.Comment) {
	m.Called(postOwnerID, comment)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestNotificationHandler_Like(t *testing.T) {
	p := new(mockProducer)
	want := domain.Like{ID: "l1", PostID: "p1", UserID: "A", CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	p.On("NotifyLike", "B", want).Return()

	rec := post(NewNotificationHandler(p).Like,
		`{"postOwnerId":"B","like":{"id":"l1","postId":"p1","userId":"A","createdAt":"2024-03-01T12:00:00Z"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message":"queued"}`, rec.Body.String())
	p.AssertExpectations(t)
}

func TestNotificationHandler_Comment(t *testing.T) {
	p := new(mockProducer)
	want := domain.Comment{ID: "c1", PostID: "p1", UserID: "A", Text: "nice!", CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	p.On("NotifyComment", "B", want).Return()

	rec := post(NewNotificationHandler(p).Comment,
		`{"postOwnerId":"B","comment":{"id":"c1","postId":"p1","userId":"A","text":"nice!","createdAt":"2024-03-01T12:00:00Z"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	p.AssertExpectations(t)
}

func TestNotificationHandler_MalformedBody(t *testing.T) {
	p := new(mockProducer)

	rec := post(NewNotificationHandler(p).Like, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
	p.AssertNotCalled(t, "NotifyLike", mock.Anything, mock.Anything)
}

func TestNotificationHandler_MissingOwner(t *testing.T) {
	p := new(mockProducer)

	rec := post(NewNotificationHandler(p).Comment, `{"comment":{"id":"c1","userId":"A"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PostOwnerID")
	p.AssertNotCalled(t, "NotifyComment", mock.Anything, mock.Anything)
}

func TestNotificationHandler_MissingPayload(t *testing.T) {
	p := new(mockProducer)

	rec := post(NewNotificationHandler(p).Like, `{"postOwnerId":"B"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Like")
}
