package catalog

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

const (
	testBucket   = "sections-catalog"
	testPrefix   = "catalogs"
	testSSMParam = "/sections/catalog/current"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    []string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String(key)}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeSSM struct {
	mu    sync.Mutex
	value string
	err   error
}

func (f *fakeSSM) set(v string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value, f.err = v, err
}

func (f *fakeSSM) GetParameter(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(f.value)}}, nil
}

// publish stores doc under its digest and returns the digest.
func publish(s *fakeS3, doc string) string {
	hash := cryptoutil.SHA256Hex([]byte(doc))
	s.put(testPrefix+"/"+hash+".json", []byte(doc))
	return hash
}

func newTestLoader(t *testing.T, s *fakeS3, p *fakeSSM, v SignatureVerifier) *Loader {
	t.Helper()
	l, err := NewLoader(LoaderOptions{
		Logger:     log.Nop(),
		SSMParam:   testSSMParam,
		S3Bucket:   testBucket,
		S3Prefix:   "/" + testPrefix + "/",
		S3:         s,
		SSM:        p,
		Verifier:   v,
		Validation: DefaultValidationOptions(),
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return l
}

func TestNewLoader_RequiresOptions(t *testing.T) {
	cases := []LoaderOptions{
		{S3Bucket: "b", S3: newFakeS3(), SSM: &fakeSSM{}},
		{SSMParam: "p", S3: newFakeS3(), SSM: &fakeSSM{}},
		{SSMParam: "p", S3Bucket: "b"},
	}
	for i, opts := range cases {
		if _, err := NewLoader(opts); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

// CurrentHash

func TestCurrentHash(t *testing.T) {
	good := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		value   string
		err     error
		want    string
		wantErr bool
	}{
		{"ok", good, nil, good, false},
		{"trimmed and lowered", "  " + strings.ToUpper(good) + "\n", nil, good, false},
		{"empty", "", nil, "", true},
		{"not hex", strings.Repeat("zz", 32), nil, "", true},
		{"short", "abc", nil, "", true},
		{"ssm error", "", errors.New("throttled"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoader(t, newFakeS3(), &fakeSSM{value: tt.value, err: tt.err}, nil)
			got, err := l.CurrentHash(t.Context())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("hash = %q, want %q", got, tt.want)
			}
		})
	}
}

// Load / LoadHash

func TestLoad_VerifiesDigest(t *testing.T) {
	s := newFakeS3()
	hash := publish(s, sampleDoc)
	l := newTestLoader(t, s, &fakeSSM{value: hash}, nil)

	snap, err := l.Load(t.Context())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Meta.Hash != hash || snap.Meta.Source != SourceS3 || snap.Meta.Signed {
		t.Fatalf("meta = %+v", snap.Meta)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("items = %d", len(snap.Items))
	}
}

func TestLoadHash_ChecksumMismatch(t *testing.T) {
	s := newFakeS3()
	hash := strings.Repeat("0", 64)
	s.put(testPrefix+"/"+hash+".json", []byte(sampleDoc))
	l := newTestLoader(t, s, &fakeSSM{}, nil)

	_, err := l.LoadHash(t.Context(), hash)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadHash_MissingObject(t *testing.T) {
	l := newTestLoader(t, newFakeS3(), &fakeSSM{}, nil)
	_, err := l.LoadHash(t.Context(), strings.Repeat("1", 64))
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
}

func TestLoadHash_InvalidCatalog(t *testing.T) {
	s := newFakeS3()
	hash := publish(s, `{"items":[{"id":"a","kind":"page"}]}`)
	l := newTestLoader(t, s, &fakeSSM{}, nil)
	if _, err := l.LoadHash(t.Context(), hash); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadHash_Signature(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte(sampleDoc))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	v := cryptoutil.NewKMSVerifierFromKey(&key.PublicKey)

	t.Run("valid", func(t *testing.T) {
		s := newFakeS3()
		hash := publish(s, sampleDoc)
		s.put(testPrefix+"/"+hash+".json.sig", sig)

		snap, err := newTestLoader(t, s, &fakeSSM{}, v).LoadHash(t.Context(), hash)
		if err != nil {
			t.Fatalf("LoadHash: %v", err)
		}
		if !snap.Meta.Signed {
			t.Fatal("Signed should be true")
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		s := newFakeS3()
		hash := publish(s, sampleDoc)
		if _, err := newTestLoader(t, s, &fakeSSM{}, v).LoadHash(t.Context(), hash); err == nil {
			t.Fatal("expected error when signature object is missing")
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		s := newFakeS3()
		hash := publish(s, sampleDoc)
		bad := bytes.Clone(sig)
		bad[len(bad)-1] ^= 0xff
		s.put(testPrefix+"/"+hash+".json.sig", bad)
		if _, err := newTestLoader(t, s, &fakeSSM{}, v).LoadHash(t.Context(), hash); err == nil {
			t.Fatal("expected verification error")
		}
	})
}
