package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"driveupload/internal/mailer"
	"driveupload/internal/storage"
	"driveupload/internal/tree"
	"driveupload/internal/utils"
	"driveupload/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrMissingParams = errors.New("missing required parameters")

// StorageFactory builds a storage client for one invocation.
type StorageFactory func(ctx context.Context) (storage.Storage, error)

// MailerFactory builds a mail transport for one invocation.
type MailerFactory func() (mailer.Mailer, error)

// Service runs the upload pipeline: validate, resolve the destination,
// upload the payloads, notify, respond.
type Service struct {
	logger     *logrus.Logger
	resolver   *tree.Resolver
	newStorage StorageFactory
	newMailer  MailerFactory
}

func New(logger *logrus.Logger, resolver *tree.Resolver, newStorage StorageFactory, newMailer MailerFactory) *Service {
	return &Service{
		logger:     logger,
		resolver:   resolver,
		newStorage: newStorage,
		newMailer:  newMailer,
	}
}

// Handle never fails: every error is reported through the result.
func (s *Service) Handle(ctx context.Context, req *types.UploadRequest) *types.UploadResult {
	res, err := s.handle(ctx, req)
	if err != nil {
		s.logger.WithError(err).Error("upload failed")
		return &types.UploadResult{Err: err}
	}
	return res
}

// plan is a validated request with its payloads decoded.
type plan struct {
	req   *types.UploadRequest
	path  tree.Path
	pdf   []byte
	excel []byte
}

func (s *Service) handle(ctx context.Context, req *types.UploadRequest) (*types.UploadResult, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"societa":        req.Organization,
		"modulo":         req.Module,
		"tipo":           req.Type,
		"deposito_drive": req.Deposit,
	})
	entry.Info("upload request")

	res := &types.UploadResult{Success: true, Deposited: req.Deposit}

	if req.Deposit {
		if err := s.deposit(ctx, p, res); err != nil {
			s.warnOrphans(res, err)
			return nil, err
		}
	}

	if req.Type == types.RequestTypeChecklist {
		if err := s.notify(ctx, p, res); err != nil {
			s.warnOrphans(res, err)
			return nil, err
		}
	}

	entry.WithFields(logrus.Fields{
		"pdf_link":   utils.PtrString(res.PDFLink),
		"excel_link": utils.PtrString(res.ExcelLink),
	}).Info("upload completed")

	return res, nil
}

// prepare validates the request and decodes the payloads that will be
// used, without touching any external service.
func (s *Service) prepare(req *types.UploadRequest) (*plan, error) {
	if req == nil ||
		strings.TrimSpace(req.Organization) == "" ||
		strings.TrimSpace(req.Module) == "" ||
		strings.TrimSpace(string(req.Type)) == "" ||
		strings.TrimSpace(req.ServiceDate) == "" {
		return nil, ErrMissingParams
	}

	date, err := tree.ParseServiceDate(req.ServiceDate)
	if err != nil {
		return nil, err
	}

	path, err := s.resolver.Resolve(req.Organization, req.Module, date)
	if err != nil {
		return nil, err
	}

	p := &plan{req: req, path: path}

	if req.PDF != nil && (req.Deposit || req.Type == types.RequestTypeChecklist) {
		p.pdf, err = DecodePayload(req.PDF.Data, "pdf")
		if err != nil {
			return nil, err
		}
	}

	if req.Excel != nil && req.Deposit && req.Type == types.RequestTypeTimesheet {
		p.excel, err = DecodePayload(req.Excel.Data, "excel")
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (s *Service) deposit(ctx context.Context, p *plan, res *types.UploadResult) error {
	store, err := s.newStorage(ctx)
	if err != nil {
		return err
	}

	folderID, err := storage.EnsurePath(ctx, store, p.path.RootID, p.path.Children()...)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"path":      p.path.String(),
		"folder_id": folderID,
	}).Debug("destination folder ready")

	// The two uploads only share the destination folder.
	g, gctx := errgroup.WithContext(ctx)

	if p.pdf != nil {
		g.Go(func() error {
			id, err := store.UploadFile(gctx, storage.File{
				Name:        p.req.PDF.Name,
				ParentID:    folderID,
				ContentType: storage.ContentTypePDF,
				Body:        bytes.NewReader(p.pdf),
			})
			if err != nil {
				return err
			}
			res.PDFLink = utils.StringPtr(store.ViewLink(id))
			return nil
		})
	}

	if p.excel != nil {
		g.Go(func() error {
			id, err := store.UploadFile(gctx, storage.File{
				Name:        p.req.Excel.Name,
				ParentID:    folderID,
				ContentType: storage.ContentTypeXLSX,
				Body:        bytes.NewReader(p.excel),
			})
			if err != nil {
				return err
			}
			res.ExcelLink = utils.StringPtr(store.ViewLink(id))
			return nil
		})
	}

	return g.Wait()
}

func (s *Service) notify(ctx context.Context, p *plan, res *types.UploadResult) error {
	m, err := s.newMailer()
	if err != nil {
		return err
	}

	return m.SendMail(ctx, ComposeNotification(p.req, res, p.pdf))
}

// warnOrphans logs links produced before a failure. They are not returned
// to the caller but the files stay in storage.
func (s *Service) warnOrphans(res *types.UploadResult, cause error) {
	if res.PDFLink == nil && res.ExcelLink == nil {
		return
	}

	s.logger.WithError(cause).WithFields(logrus.Fields{
		"pdf_link":   utils.PtrString(res.PDFLink),
		"excel_link": utils.PtrString(res.ExcelLink),
	}).Warn("files stored before failure are not reported to the caller")
}

// testModeNotice marks notifications for runs that stored nothing.
const testModeNotice = "Modalità TEST / SCUOLA (test mode, nessun deposito su Drive)"

// ComposeNotification builds the checklist email. pdf is the decoded
// primary payload, attached under its original name when present.
func ComposeNotification(req *types.UploadRequest, res *types.UploadResult, pdf []byte) *mailer.Message {
	var text strings.Builder
	fmt.Fprintf(&text, "Documento: %s\n", req.Module)
	fmt.Fprintf(&text, "Società: %s\n", req.Organization)
	fmt.Fprintf(&text, "Data: %s\n", req.ServiceDate)

	if req.Deposit {
		if res.PDFLink != nil {
			fmt.Fprintf(&text, "\nPDF su Drive: %s", *res.PDFLink)
		}
		if res.ExcelLink != nil {
			fmt.Fprintf(&text, "\nExcel su Drive: %s", *res.ExcelLink)
		}
	} else {
		text.WriteString("\n" + testModeNotice)
	}

	msg := &mailer.Message{
		Subject: fmt.Sprintf("%s – %s", req.Module, req.Organization),
		Text:    text.String(),
	}

	if req.Email != nil {
		msg.To = req.Email.To
		msg.Cc = req.Email.CC
	}

	if req.PDF != nil && pdf != nil {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{Name: req.PDF.Name, Data: pdf})
	}

	return msg
}

// Response maps a result to the HTTP status and JSON body.
func Response(res *types.UploadResult) (int, any) {
	if !res.Success {
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return http.StatusInternalServerError, types.ErrorResponse{Success: false, Error: msg}
	}

	return http.StatusOK, types.UploadResponse{
		Success:    true,
		Definitivo: res.Deposited,
		PDFLink:    res.PDFLink,
		ExcelLink:  res.ExcelLink,
	}
}
