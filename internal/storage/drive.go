package storage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Out-of-band redirect used by the installed-app grant the refresh token was issued under.
const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// DriveCredentials are the OAuth client and the user's refresh token.
type DriveCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Drive stores files in Google Drive.
type Drive struct {
	files *drive.FilesService
}

// NewDrive builds a Drive client authenticated with a refresh-token source.
func NewDrive(ctx context.Context, creds DriveCredentials) (*Drive, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN", ErrNotConfigured)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  oobRedirectURL,
		Scopes:       []string{drive.DriveScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	return NewDriveWithOptions(ctx, option.WithTokenSource(ts))
}

// NewDriveWithOptions builds a Drive client from raw client options.
func NewDriveWithOptions(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Drive{files: svc.Files}, nil
}

func (d *Drive) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	q := folderQuery(name, parentID)

	list, err := d.files.List().
		Q(q).
		Fields("files(id,name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list folder %q: %w", name, err)
	}

	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := d.files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}

	return folder.Id, nil
}

func (d *Drive) UploadFile(ctx context.Context, f File) (string, error) {
	created, err := d.files.Create(&drive.File{
		Name:    f.Name,
		Parents: []string{f.ParentID},
	}).
		Media(f.Body, googleapi.ContentType(f.ContentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", f.Name, err)
	}

	return created.Id, nil
}

func (d *Drive) ViewLink(fileID string) string {
	return fmt.Sprintf(driveViewLinkFmt, fileID)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func folderQuery(name, parentID string) string {
	return strings.Join([]string{
		fmt.Sprintf("'%s' in parents", queryEscaper.Replace(parentID)),
		fmt.Sprintf("mimeType='%s'", folderMimeType),
		fmt.Sprintf("name='%s'", queryEscaper.Replace(name)),
		"trashed=false",
	}, " and ")
}

var _ Storage = (*Drive)(nil)
