package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"driveupload/internal/mailer"
	"driveupload/internal/storage"
	"driveupload/internal/tree"
	"driveupload/pkg/types"

	"github.com/sirupsen/logrus"
)

type fakeStorage struct {
	mu        sync.Mutex
	folders   map[string]string
	ensures   int
	creates   int
	uploads   []storage.File
	bodies    map[string][]byte
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{folders: make(map[string]string), bodies: make(map[string][]byte)}
}

func (f *fakeStorage) EnsureFolder(_ context.Context, name, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ensures++
	key := parentID + "/" + name
	if id, ok := f.folders[key]; ok {
		return id, nil
	}
	f.creates++
	id := fmt.Sprintf("folder-%d", f.creates)
	f.folders[key] = id
	return id, nil
}

func (f *fakeStorage) UploadFile(_ context.Context, file storage.File) (string, error) {
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil && file.ContentType == storage.ContentTypeXLSX {
		return "", f.uploadErr
	}

	f.uploads = append(f.uploads, file)
	id := fmt.Sprintf("file-%d", len(f.uploads))
	f.bodies[id] = data
	return id, nil
}

func (f *fakeStorage) ViewLink(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}

func (f *fakeStorage) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensures + len(f.uploads)
}

type fakeMailer struct {
	sent []*mailer.Message
	err  error
}

func (f *fakeMailer) SendMail(_ context.Context, msg *mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type harness struct {
	svc            *Service
	store          *fakeStorage
	mail           *fakeMailer
	storageBuilds  int
	mailerBuilds   int
	storageFactErr error
	mailerFactErr  error
}

func newHarness() *harness {
	h := &harness{store: newFakeStorage(), mail: &fakeMailer{}}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h.svc = New(logger, tree.NewResolver(nil),
		func(context.Context) (storage.Storage, error) {
			h.storageBuilds++
			if h.storageFactErr != nil {
				return nil, h.storageFactErr
			}
			return h.store, nil
		},
		func() (mailer.Mailer, error) {
			h.mailerBuilds++
			if h.mailerFactErr != nil {
				return nil, h.mailerFactErr
			}
			return h.mail, nil
		},
	)
	return h
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func validRequest() *types.UploadRequest {
	return &types.UploadRequest{
		Organization: "MIS_OSIMO",
		Module:       "CHECKLIST MEZZI",
		Type:         types.RequestTypeChecklist,
		ServiceDate:  "2025-03-14",
		Email:        &types.Recipients{To: []string{"ops@example.com"}, CC: []string{"audit@example.com"}},
		PDF:          &types.FilePayload{Name: "checklist.pdf", Data: b64([]byte("%PDF-1.4 checklist"))},
	}
}

func TestHandleMissingParams(t *testing.T) {
	mutations := map[string]func(*types.UploadRequest){
		"societa":       func(r *types.UploadRequest) { r.Organization = "" },
		"modulo":        func(r *types.UploadRequest) { r.Module = "" },
		"tipo":          func(r *types.UploadRequest) { r.Type = "" },
		"data_servizio": func(r *types.UploadRequest) { r.ServiceDate = "  " },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			h := newHarness()
			req := validRequest()
			req.Deposit = true
			mutate(req)

			res := h.svc.Handle(context.Background(), req)
			if res.Success || !errors.Is(res.Err, ErrMissingParams) {
				t.Fatalf("expected ErrMissingParams, got %+v", res)
			}
			if h.storageBuilds+h.mailerBuilds+h.store.calls()+len(h.mail.sent) != 0 {
				t.Errorf("external calls made before validation failed")
			}
		})
	}

	h := newHarness()
	if res := h.svc.Handle(context.Background(), nil); !errors.Is(res.Err, ErrMissingParams) {
		t.Errorf("nil request: %+v", res)
	}
}

func TestHandleUnknownOrganization(t *testing.T) {
	for _, deposit := range []bool{true, false} {
		h := newHarness()
		req := validRequest()
		req.Organization = "MIS_ANCONA"
		req.Deposit = deposit

		res := h.svc.Handle(context.Background(), req)
		if res.Success || !errors.Is(res.Err, tree.ErrUnknownOrganization) {
			t.Fatalf("deposit=%v: expected ErrUnknownOrganization, got %+v", deposit, res)
		}
		if !strings.Contains(res.Err.Error(), "organization not recognized") {
			t.Errorf("message = %q", res.Err.Error())
		}
		if h.storageBuilds+h.mailerBuilds+h.store.calls()+len(h.mail.sent) != 0 {
			t.Errorf("deposit=%v: external calls made for unknown organization", deposit)
		}
	}
}

func TestHandleInvalidDate(t *testing.T) {
	h := newHarness()
	req := validRequest()
	req.ServiceDate = "ieri"

	res := h.svc.Handle(context.Background(), req)
	if res.Success || !errors.Is(res.Err, tree.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %+v", res)
	}
}

func TestHandleTimesheetDeposit(t *testing.T) {
	h := newHarness()
	pdf := []byte("%PDF-1.7 timesheet")
	xlsx := []byte{'P', 'K', 0x03, 0x04, 0x00, 0xff, 0x10}

	req := &types.UploadRequest{
		Organization: "MIS_GROTTAMMARE",
		Module:       "TIMESHEET",
		Type:         types.RequestTypeTimesheet,
		ServiceDate:  "2024-11-05",
		Deposit:      true,
		PDF:          &types.FilePayload{Name: "ts.pdf", Data: b64(pdf)},
		Excel:        &types.FilePayload{Name: "ts.xlsx", Data: b64(xlsx)},
	}

	res := h.svc.Handle(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if !res.Deposited {
		t.Error("Deposited should mirror the deposit flag")
	}
	if res.PDFLink == nil || res.ExcelLink == nil {
		t.Fatalf("missing links: %+v", res)
	}
	if *res.PDFLink == *res.ExcelLink {
		t.Errorf("links should reference distinct files: %s", *res.PDFLink)
	}
	for _, link := range []string{*res.PDFLink, *res.ExcelLink} {
		if !strings.HasPrefix(link, "https://drive.google.com/file/d/file-") || !strings.HasSuffix(link, "/view") {
			t.Errorf("link %q does not follow the view template", link)
		}
	}

	if h.store.folders["12Nj8o942uedxByJOtcSKXvkTBH6ShNNA/2024"] == "" {
		t.Errorf("year folder not created under the organization root: %v", h.store.folders)
	}
	leaf := h.store.folders["folder-2/11_NOVEMBRE"]
	if leaf == "" {
		t.Fatalf("month folder not created under module folder: %v", h.store.folders)
	}

	byType := map[string]storage.File{}
	for _, f := range h.store.uploads {
		byType[f.ContentType] = f
		if f.ParentID != leaf {
			t.Errorf("%s uploaded to %q, want %q", f.Name, f.ParentID, leaf)
		}
	}
	if byType[storage.ContentTypePDF].Name != "ts.pdf" || byType[storage.ContentTypeXLSX].Name != "ts.xlsx" {
		t.Errorf("unexpected uploads: %+v", h.store.uploads)
	}

	if h.mailerBuilds != 0 || len(h.mail.sent) != 0 {
		t.Error("timesheet requests must not send email")
	}
}

func TestHandleUploadRoundTrip(t *testing.T) {
	h := newHarness()
	original := make([]byte, 1024)
	for i := range original {
		original[i] = byte(i * 7)
	}

	req := validRequest()
	req.Type = "VERBALE"
	req.Deposit = true
	req.PDF.Data = b64(original)

	res := h.svc.Handle(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if !bytes.Equal(h.store.bodies["file-1"], original) {
		t.Error("uploaded bytes differ from the decoded payload")
	}
}

func TestHandleExcelIgnoredUnlessTimesheet(t *testing.T) {
	h := newHarness()
	req := validRequest()
	req.Type = "VERBALE"
	req.Deposit = true
	req.Excel = &types.FilePayload{Name: "ignored.xlsx"} // no data: must not even be decoded

	res := h.svc.Handle(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.ExcelLink != nil || len(h.store.uploads) != 1 {
		t.Errorf("excel uploaded for non-timesheet request: %+v", h.store.uploads)
	}
}

func TestHandleChecklistTestMode(t *testing.T) {
	h := newHarness()
	req := validRequest()
	req.Deposit = false

	res := h.svc.Handle(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Deposited || res.PDFLink != nil || res.ExcelLink != nil {
		t.Errorf("test mode produced deposit output: %+v", res)
	}
	if h.storageBuilds != 0 || h.store.calls() != 0 {
		t.Error("storage touched without deposit flag")
	}

	if len(h.mail.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(h.mail.sent))
	}
	msg := h.mail.sent[0]
	if !strings.Contains(strings.ToLower(msg.Text), "test mode") {
		t.Errorf("body missing test mode notice: %q", msg.Text)
	}
	if strings.Contains(msg.Text, "drive.google.com") {
		t.Errorf("test mode body contains links: %q", msg.Text)
	}
	if msg.Subject != "CHECKLIST MEZZI – MIS_OSIMO" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if len(msg.To) != 1 || msg.To[0] != "ops@example.com" || len(msg.Cc) != 1 {
		t.Errorf("recipients = %v / %v", msg.To, msg.Cc)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Name != "checklist.pdf" ||
		string(msg.Attachments[0].Data) != "%PDF-1.4 checklist" {
		t.Errorf("attachment = %+v", msg.Attachments)
	}
}

func TestHandleChecklistDeposit(t *testing.T) {
	h := newHarness()
	req := validRequest()
	req.Deposit = true

	res := h.svc.Handle(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.PDFLink == nil {
		t.Fatal("missing pdf link")
	}

	msg := h.mail.sent[0]
	if !strings.Contains(msg.Text, "PDF su Drive: "+*res.PDFLink) {
		t.Errorf("body missing link: %q", msg.Text)
	}
	if strings.Contains(strings.ToLower(msg.Text), "test mode") {
		t.Errorf("deposit run flagged as test mode: %q", msg.Text)
	}
	for _, line := range []string{"Documento: CHECKLIST MEZZI", "Società: MIS_OSIMO", "Data: 2025-03-14"} {
		if !strings.Contains(msg.Text, line) {
			t.Errorf("body missing %q", line)
		}
	}
}

func TestHandleNoEmailForOtherTypes(t *testing.T) {
	for _, deposit := range []bool{true, false} {
		h := newHarness()
		req := validRequest()
		req.Type = types.RequestTypeTimesheet
		req.Deposit = deposit

		res := h.svc.Handle(context.Background(), req)
		if !res.Success {
			t.Fatalf("deposit=%v: unexpected failure: %v", deposit, res.Err)
		}
		if h.mailerBuilds != 0 || len(h.mail.sent) != 0 {
			t.Errorf("deposit=%v: email sent for non-checklist request", deposit)
		}
	}
}

func TestHandleMissingPayloadData(t *testing.T) {
	h := newHarness()
	req := validRequest()
	req.Deposit = true
	req.PDF.Data = ""

	res := h.svc.Handle(context.Background(), req)
	if res.Success || !errors.Is(res.Err, ErrMissingPayload) {
		t.Fatalf("expected ErrMissingPayload, got %+v", res)
	}
	if !strings.HasPrefix(res.Err.Error(), "pdf ") {
		t.Errorf("error not labelled: %q", res.Err.Error())
	}
	if h.storageBuilds != 0 {
		t.Error("storage built for an undecodable request")
	}
}

func TestHandleExternalFailures(t *testing.T) {
	t.Run("storage config", func(t *testing.T) {
		h := newHarness()
		h.storageFactErr = storage.ErrNotConfigured
		req := validRequest()
		req.Deposit = true

		res := h.svc.Handle(context.Background(), req)
		if res.Success || !errors.Is(res.Err, storage.ErrNotConfigured) {
			t.Fatalf("got %+v", res)
		}
		if len(h.mail.sent) != 0 {
			t.Error("email sent after storage failure")
		}
	})

	t.Run("mail config", func(t *testing.T) {
		h := newHarness()
		h.mailerFactErr = mailer.ErrNotConfigured

		res := h.svc.Handle(context.Background(), validRequest())
		if res.Success || !errors.Is(res.Err, mailer.ErrNotConfigured) {
			t.Fatalf("got %+v", res)
		}
	})

	t.Run("send", func(t *testing.T) {
		h := newHarness()
		h.mail.err = errors.New("535 authentication failed")
		req := validRequest()
		req.Deposit = true

		res := h.svc.Handle(context.Background(), req)
		if res.Success || res.Err.Error() != "535 authentication failed" {
			t.Fatalf("got %+v", res)
		}
		if res.PDFLink != nil {
			t.Error("links must not be reported on failure")
		}
		if len(h.store.uploads) != 1 {
			t.Error("pdf should have been stored before the send failed")
		}
	})

	t.Run("upload", func(t *testing.T) {
		h := newHarness()
		h.store.uploadErr = errors.New("quota exceeded")
		req := validRequest()
		req.Type = types.RequestTypeTimesheet
		req.Deposit = true
		req.Excel = &types.FilePayload{Name: "ts.xlsx", Data: b64([]byte("PK"))}

		res := h.svc.Handle(context.Background(), req)
		if res.Success || res.Err.Error() != "quota exceeded" {
			t.Fatalf("got %+v", res)
		}
	})
}

func TestResponse(t *testing.T) {
	status, body := Response(&types.UploadResult{Err: errors.New("boom")})
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d", status)
	}
	if e, ok := body.(types.ErrorResponse); !ok || e.Success || e.Error != "boom" {
		t.Errorf("body = %#v", body)
	}

	link := "https://drive.google.com/file/d/x/view"
	status, body = Response(&types.UploadResult{Success: true, Deposited: true, PDFLink: &link})
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	ok, _ := body.(types.UploadResponse)
	if !ok.Success || !ok.Definitivo || ok.PDFLink != &link || ok.ExcelLink != nil {
		t.Errorf("body = %#v", body)
	}
}
