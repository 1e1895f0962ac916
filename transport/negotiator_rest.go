package transport

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"time"

	"github.com/go-resty/resty/v2"
)

// RESTNegotiator performs the SDP offer/answer exchange against the
// SFU's room-join endpoint via a multipart POST (SDP part + bearer
// auth).
type RESTNegotiator struct {
	http *resty.Client
}

var _ Negotiator = (*RESTNegotiator)(nil)

// NewRESTNegotiator builds a negotiator with a bounded request timeout.
func NewRESTNegotiator() *RESTNegotiator {
	return &RESTNegotiator{http: resty.New().SetTimeout(15 * time.Second)}
}

func (n *RESTNegotiator) Negotiate(ctx context.Context, streamURL, jwtToken, offerSDP string) (string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	headers := textproto.MIMEHeader{}
	headers.Set("Content-Disposition", `form-data; name="sdp"`)
	headers.Set("Content-Type", "application/sdp")
	part, err := writer.CreatePart(headers)
	if err != nil {
		return "", fmt.Errorf("creating SDP part: %w", err)
	}
	if _, err := part.Write([]byte(offerSDP)); err != nil {
		return "", fmt.Errorf("writing SDP part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+jwtToken).
		SetHeader("Content-Type", writer.FormDataContentType()).
		SetBody(body.Bytes()).
		Post(streamURL)
	if err != nil {
		return "", fmt.Errorf("performing SFU join request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("SFU join returned %s: %s", resp.Status(), resp.String())
	}
	return resp.String(), nil
}
