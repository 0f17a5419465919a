package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestValidateJID(t *testing.T) {
	SetupValidator()
	v := binding.Validator.Engine().(*validator.Validate)

	type request struct {
		Raw string `json:"raw" binding:"jid"`
	}

	tests := []struct {
		raw   string
		valid bool
	}{
		{"5511999990000@s.whatsapp.net", true},
		{"123456789@lid", true},
		{"123456789@lid:0", true},
		{"120363012345678901@g.us", true},
		{"+55 11 99999-0000", true},
		{"", true},
		{"<script>", false},
		{"123@lid;drop", false},
		{"number\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := v.Struct(request{Raw: tt.raw})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	type resolveRequest struct {
		RawIdentifier string `json:"raw_identifier" binding:"required,jid"`
		ProfilePicURL string `json:"profile_pic_url" binding:"omitempty,url"`
	}

	SetupValidator()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req resolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	tests := []struct {
		name    string
		body    string
		code    int
		field   string
		message string
	}{
		{"missing identifier", `{}`, http.StatusBadRequest, "raw_identifier", "This field is required"},
		{"bad characters", `{"raw_identifier": "12<3>@lid"}`, http.StatusBadRequest, "raw_identifier", "Must be a network identifier"},
		{"bad url", `{"raw_identifier": "123@lid", "profile_pic_url": "nope"}`, http.StatusBadRequest, "profile_pic_url", "Invalid URL format"},
		{"valid", `{"raw_identifier": "123@lid"}`, http.StatusOK, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.field == "" {
				return
			}

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			assert.Equal(t, tt.message, resp.Error.Details[0].Message)
		})
	}
}

func TestHandleValidationError_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(RequestIDKey, "req-1")

	HandleValidationError(c, validator.ValidationErrors{})

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
