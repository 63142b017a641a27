package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		task     *entity.NotificationTask
		contains []string
	}{
		{
			name: "rejection with score",
			task: &entity.NotificationTask{
				Template: entity.TemplateRejectionReason,
				Params:   map[string]string{"case_number": "GRN-2024-001", "score": "0.61"},
			},
			contains: []string{"GRN-2024-001", "0.61", "rejected"},
		},
		{
			name: "insufficient funds",
			task: &entity.NotificationTask{
				Template: entity.TemplateInsufficientFunds,
				Params:   map[string]string{"balance": "500", "amount": "750"},
			},
			contains: []string{"500", "750", "insufficient funds"},
		},
		{
			name: "payment confirmation",
			task: &entity.NotificationTask{
				Template: entity.TemplatePaymentConfirmation,
				Params:   map[string]string{"amount": "750.50", "creditor": "Acme Collections", "reference": "PAY-42"},
			},
			contains: []string{"750.50", "Acme Collections", "PAY-42"},
		},
		{
			name: "cancellation with reason",
			task: &entity.NotificationTask{
				Template: entity.TemplateCaseCancelled,
				Params:   map[string]string{"reason": "creditor withdrew the order"},
			},
			contains: []string{"cancelled", "creditor withdrew the order"},
		},
		{
			name: "cancellation without reason",
			task: &entity.NotificationTask{
				Template: entity.TemplateCaseCancelled,
				Params:   map[string]string{},
			},
			contains: []string{"cancelled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Render(tt.task)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render(&entity.NotificationTask{Template: "nope"})
	assert.Error(t, err)
}

func TestWebhookSender_Send(t *testing.T) {
	var got webhookPayload
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Dedup-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, srv.URL, time.Second, zap.NewNop())

	task := &entity.NotificationTask{
		CaseID:   "case-1",
		Channel:  entity.ChannelCreditor,
		Template: entity.TemplatePaymentConfirmation,
		Params:   map[string]string{"amount": "750", "creditor": "Acme", "reference": "PAY-42"},
		DedupKey: "case-1:PAYMENT_SENT:creditor",
	}
	require.NoError(t, s.Send(context.Background(), task))

	assert.Equal(t, "case-1", got.CaseID)
	assert.Contains(t, got.Message, "PAY-42")
	assert.Equal(t, "case-1:PAYMENT_SENT:creditor", gotHeader)
}

func TestWebhookSender_ChannelRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, srv.URL, time.Second, zap.NewNop())
	err := s.Send(context.Background(), &entity.NotificationTask{
		CaseID:   "case-1",
		Channel:  entity.ChannelCustomer,
		Template: entity.TemplateCaseCancelled,
		Params:   map[string]string{},
		DedupKey: "case-1:CANCELLED:customer",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
}

func TestWebhookSender_UnknownChannel(t *testing.T) {
	s := NewWebhookSender("http://creditor", "http://customer", time.Second, zap.NewNop())
	err := s.Send(context.Background(), &entity.NotificationTask{Channel: "pager"})
	assert.Error(t, err)
}
