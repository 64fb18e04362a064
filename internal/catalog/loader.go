package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

// S3API is the part of the S3 client the loader uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SSMAPI is the part of the SSM client the loader uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SignatureVerifier checks a detached signature over the raw document.
type SignatureVerifier interface {
	Verify(ctx context.Context, message, signature []byte) error
}

type LoaderOptions struct {
	Logger log.Logger

	// SSMParam holds the hex SHA-256 of the current catalog document.
	SSMParam string

	// Documents live at s3://{S3Bucket}/{S3Prefix}/{hash}.json with an
	// optional detached signature at {hash}.json.sig.
	S3Bucket string
	S3Prefix string

	S3  S3API
	SSM SSMAPI

	// Verifier, when set, makes the signature object mandatory.
	Verifier SignatureVerifier

	Validation ValidationOptions
}

type Loader struct {
	opts   LoaderOptions
	logger log.Logger
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	switch {
	case opts.SSMParam == "":
		return nil, xerrors.New("SSMParam is required")
	case opts.S3Bucket == "":
		return nil, xerrors.New("S3Bucket is required")
	case opts.S3 == nil || opts.SSM == nil:
		return nil, xerrors.New("S3 and SSM clients are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Loader{opts: opts, logger: opts.Logger}, nil
}

// CurrentHash returns the catalog hash published in SSM.
func (l *Loader) CurrentHash(ctx context.Context) (string, error) {
	out, err := l.opts.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	hash := strings.ToLower(strings.TrimSpace(*out.Parameter.Value))
	if !isHexSHA256(hash) {
		return "", xerrors.Newf("SSM parameter %s is not a sha256 hex digest", l.opts.SSMParam)
	}
	return hash, nil
}

func (l *Loader) key(hash, suffix string) string {
	name := hash + ".json" + suffix
	if p := strings.Trim(l.opts.S3Prefix, "/"); p != "" {
		return p + "/" + name
	}
	return name
}

// fetch reads one object, bounded by MaxDocumentBytes.
func (l *Loader) fetch(ctx context.Context, key string) ([]byte, string, error) {
	out, err := l.opts.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "get s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	hr := cryptoutil.NewHashingReader(io.LimitReader(out.Body, MaxDocumentBytes+1))
	data, err := io.ReadAll(hr)
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "read s3://%s/%s", l.opts.S3Bucket, key)
	}
	if len(data) > MaxDocumentBytes {
		return nil, "", xerrors.Newf("s3://%s/%s exceeds %d bytes", l.opts.S3Bucket, key, MaxDocumentBytes)
	}
	return data, hr.Sum(), nil
}

func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	hash, err := l.CurrentHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadHash(ctx, hash)
}

// LoadHash downloads the document for hash, checks its digest and
// signature, decodes and validates it.
func (l *Loader) LoadHash(ctx context.Context, hash string) (*Snapshot, error) {
	loadedAt := time.Now().UTC()
	key := l.key(hash, "")

	data, actual, err := l.fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("checksum mismatch for %s: expected %s, got %s", key, hash, actual)
	}

	signed := false
	if l.opts.Verifier != nil {
		sig, _, err := l.fetch(ctx, l.key(hash, ".sig"))
		if err != nil {
			return nil, xerrors.Wrap(err, "fetch catalog signature")
		}
		if err := l.opts.Verifier.Verify(ctx, data, sig); err != nil {
			return nil, xerrors.Wrap(err, "verify catalog signature")
		}
		signed = true
	}

	doc, err := decodeBytes(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc.Items, l.opts.Validation); err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "catalog loaded",
		"key", key,
		"bytes", len(data),
		"items", len(doc.Items),
		"version", doc.Version,
		"signed", signed,
	)

	return &Snapshot{
		Items: doc.Items,
		Meta: Meta{
			Version:    doc.Version,
			Hash:       hash,
			Source:     SourceS3,
			Signed:     signed,
			VerifiedAt: time.Now().UTC(),
		},
		LoadedAt: loadedAt,
	}, nil
}

// IsNotFound reports whether err came from a missing S3 object.
func IsNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

func isHexSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
