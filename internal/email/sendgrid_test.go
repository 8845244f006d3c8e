package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"handshake/backend/internal/devotp"
)

func TestNewSendGridClient_Defaults(t *testing.T) {
	client := NewSendGridClient("api-key", "", "")
	if client.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.From != defaultFrom {
		t.Errorf("From = %q, want %q", client.From, defaultFrom)
	}
	if client.Subject != DefaultSubject {
		t.Errorf("Subject = %q, want %q", client.Subject, DefaultSubject)
	}
	if client.HTTPClient == nil || client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient timeout not set to %v", defaultTimeout)
	}
}

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body sgMail
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if len(body.Personalizations) != 1 || body.Personalizations[0].To[0].Email != "bob@example.com" {
			t.Errorf("personalizations = %+v", body.Personalizations)
		}
		if body.From.Email != "sender@example.com" {
			t.Errorf("from = %q", body.From.Email)
		}
		if body.Subject != DefaultSubject {
			t.Errorf("subject = %q", body.Subject)
		}
		if len(body.Content) != 2 || !strings.Contains(body.Content[0].Value, "012345") {
			t.Errorf("content does not carry the code: %+v", body.Content)
		}
		if !strings.Contains(body.Content[0].Value, `"Bill of Sale"`) {
			t.Errorf("content does not name the agreement: %q", body.Content[0].Value)
		}
		if body.Content[1].Type != "text/html" || !strings.Contains(body.Content[1].Value, "<strong>Bill of Sale</strong>") {
			t.Errorf("html content = %+v", body.Content[1])
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewSendGridClient("test-key", server.URL, "sender@example.com")
	err := client.Send(context.Background(), OTPMessage{
		To: "bob@example.com", AgreementID: "agr-1", Title: "Bill of Sale", Code: "012345",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSend_NoAPIKey(t *testing.T) {
	client := NewSendGridClient("", "", "")
	if err := client.Send(context.Background(), OTPMessage{To: "bob@example.com", Code: "123456"}); err == nil {
		t.Fatal("expected error when API key is empty")
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	client := NewSendGridClient("bad", server.URL, "")
	err := client.Send(context.Background(), OTPMessage{To: "bob@example.com", Code: "123456"})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestSend_HonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	client := NewSendGridClient("key", server.URL, "")
	if err := client.Send(ctx, OTPMessage{To: "bob@example.com", Code: "123456"}); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}

func TestPlainTextBody(t *testing.T) {
	body := PlainTextBody(OTPMessage{Code: "000042"}, 10*time.Minute)
	if !strings.Contains(body, "000042") || !strings.Contains(body, "10 minutes") {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "signing") {
		t.Errorf("untitled body mentions a title: %q", body)
	}
	titled := PlainTextBody(OTPMessage{Code: "000042", Title: "Lease"}, 10*time.Minute)
	if !strings.HasPrefix(titled, `You are signing "Lease".`) {
		t.Errorf("titled body = %q", titled)
	}
}

func TestHTMLBody_EscapesTitle(t *testing.T) {
	body := HTMLBody(OTPMessage{Code: "000042", Title: "<script>x</script>"}, 10*time.Minute)
	if strings.Contains(body, "<script>") {
		t.Errorf("title not escaped: %q", body)
	}
	if !strings.Contains(body, "<strong>000042</strong>") || !strings.Contains(body, "10 minutes") {
		t.Errorf("body = %q", body)
	}
}

func TestDevSender_StoresCode(t *testing.T) {
	store := devotp.NewMemoryStore()
	sender := NewDevSender(store)
	ctx := context.Background()
	err := sender.Send(ctx, OTPMessage{
		To: "bob@example.com", AgreementID: "agr-1", Code: "654321",
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	code, ok := store.Get(ctx, "agr-1", "bob@example.com")
	if !ok || code != "654321" {
		t.Errorf("store.Get = (%q, %v), want (654321, true)", code, ok)
	}
}
