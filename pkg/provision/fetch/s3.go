package fetch

import (
	"context"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
)

// S3Fetcher downloads s3://bucket/key URLs. The downloader is created from the default AWS
// session on first use unless Downloader is set.
type S3Fetcher struct {
	Downloader s3manageriface.DownloaderAPI

	once    sync.Once
	initErr error
}

func (f *S3Fetcher) downloader() (s3manageriface.DownloaderAPI, error) {
	f.once.Do(func() {
		if f.Downloader != nil {
			return
		}
		sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
		if err != nil {
			f.initErr = errors.Wrap(err, "unable to create aws session")

			return
		}
		f.Downloader = s3manager.NewDownloader(sess)
	})

	return f.Downloader, f.initErr
}

// Download implements Fetcher.
func (f *S3Fetcher) Download(ctx context.Context, rawURL, dst string) error {
	bucket, key, err := splitS3URL(rawURL)
	if err != nil {
		return err
	}

	downloader, err := f.downloader()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dst)
	}

	_, err = downloader.DownloadWithContext(ctx, out, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		out.Close()

		return errors.Wrapf(ErrFetch, "%s: %v", rawURL, err)
	}

	return errors.Wrapf(out.Close(), "unable to close %s", dst)
}

func splitS3URL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.Wrapf(err, "unable to parse %s", rawURL)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", errors.Wrapf(ErrUnsupportedScheme, "not an s3 object url: %s", rawURL)
	}

	return u.Host, key, nil
}

var _ Fetcher = (*S3Fetcher)(nil)
