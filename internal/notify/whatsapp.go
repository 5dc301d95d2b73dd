package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultAPIBase = "https://graph.facebook.com/v18.0"

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type messagePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// WhatsAppClient sends template messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	accessToken  string
	phoneID      string
	languageCode string
	apiBase      string
	httpClient   *http.Client
}

func NewWhatsAppClient(accessToken, phoneID, languageCode string) *WhatsAppClient {
	return &WhatsAppClient{
		accessToken:  accessToken,
		phoneID:      phoneID,
		languageCode: languageCode,
		apiBase:      defaultAPIBase,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WhatsAppClient) Configured() bool {
	return c.accessToken != "" && c.phoneID != ""
}

// SendTemplate attempts one template message delivery. It never returns an
// error to the caller: failures are logged and reported as false.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, phone, templateName string, variables []string) bool {
	if !c.Configured() {
		log.Println("[WHATSAPP] [WARN] not configured, skipping message send")
		return false
	}

	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: templatePayload{
			Name:     templateName,
			Language: templateLanguage{Code: c.languageCode},
		},
	}

	if len(variables) > 0 {
		parameters := make([]templateParameter, 0, len(variables))
		for _, text := range variables {
			parameters = append(parameters, templateParameter{Type: "text", Text: text})
		}
		payload.Template.Components = []templateComponent{
			{Type: "body", Parameters: parameters},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WHATSAPP] [ERROR] marshal payload for %s: %v", phone, err)
		return false
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[WHATSAPP] [ERROR] build request for %s: %v", phone, err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[WHATSAPP] [ERROR] send to %s failed: %v", phone, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[WHATSAPP] [ERROR] send to %s failed: status %d: %s", phone, resp.StatusCode, detail)
		return false
	}

	var parsed sendResponse
	messageID := ""
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}
	log.Printf("[WHATSAPP] [INFO] message sent to %s template=%s id=%s", phone, templateName, messageID)
	return true
}
