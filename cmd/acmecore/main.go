// Command acmecore drives a minimal end-to-end ACME issuance against a
// directory URL, using a challtestsrv-backed http-01 responder. It exists
// to exercise the acmecore library end to end, not as a production issuance
// client; orchestration concerns (renewal scheduling, storage, multi-domain
// batching) are out of scope.
package main

import (
	"context"
	"crypto/elliptic"
	"encoding/pem"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/challenge"
	"github.com/acmecore/acmecore/acme/client"
	"github.com/acmecore/acmecore/acme/keys"
	"github.com/acmecore/acmecore/acme/order"
	"github.com/acmecore/acmecore/acme/resources"

	"github.com/urfave/cli/v2"
)

var certCurve = elliptic.P256()

func main() {
	app := &cli.App{
		Name:  "acmecore",
		Usage: "issue a certificate against an ACME server",
		Commands: []*cli.Command{
			issueCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var issueCommand = &cli.Command{
	Name:  "issue",
	Usage: "register an account and issue a certificate for one domain",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "directory", Required: true, Usage: "ACME server directory URL"},
		&cli.StringFlag{Name: "domain", Required: true, Usage: "domain to issue a certificate for"},
		&cli.StringFlag{Name: "email", Usage: "contact email for the new account"},
		&cli.StringFlag{Name: "ca-bundle", Usage: "path to a PEM CA bundle to trust, for test servers"},
		&cli.StringFlag{Name: "challtestsrv", Value: "http://localhost:8055", Usage: "challtestsrv management API address"},
	},
	Action: issueAction,
}

func issueAction(c *cli.Context) error {
	session, err := client.New(client.Config{
		DirectoryURL: c.String("directory"),
		CABundlePath: c.String("ca-bundle"),
	})
	if err != nil {
		return fmt.Errorf("connecting to ACME server: %w", err)
	}

	acct, err := resources.NewAccount([]string{c.String("email")}, nil)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	if err := session.Register(acct); err != nil {
		return fmt.Errorf("registering account: %w", err)
	}
	log.Printf("registered account %s", acct.ID)

	domain := c.String("domain")
	newOrder, err := order.Create(session, []string{domain})
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	log.Printf("created order %s", newOrder.Resource().ID)

	responder := challenge.NewChallTestSrvResponder(c.String("challtestsrv"))
	if err := authorize(session, newOrder, responder, domain); err != nil {
		return err
	}

	if err := newOrder.Refresh(); err != nil {
		return fmt.Errorf("refreshing order: %w", err)
	}
	csrOrder, err := newOrder.ConfirmValidations()
	if err != nil {
		return fmt.Errorf("order not ready to finalize: %w", err)
	}

	certKey, err := keys.GenerateCertKey(certCurve)
	if err != nil {
		return fmt.Errorf("generating certificate key: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	certOrder, err := csrOrder.Finalize(ctx, certKey, order.DefaultPollPolicy)
	if err != nil {
		return fmt.Errorf("finalizing order: %w", err)
	}

	identity, err := certOrder.DownloadCertificate()
	if err != nil {
		return fmt.Errorf("downloading certificate: %w", err)
	}
	log.Printf("issued certificate for %s, valid until %s", domain, identity.Leaf.NotAfter.Format(time.RFC3339))

	for _, der := range identity.Certificate {
		if err := pem.Encode(os.Stdout, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
			return fmt.Errorf("encoding certificate: %w", err)
		}
	}
	return nil
}

func authorize(session *client.Session, newOrder *order.NewOrder, responder challenge.Responder, domain string) error {
	authzs, err := newOrder.Authorizations()
	if err != nil {
		return fmt.Errorf("fetching authorizations: %w", err)
	}

	for _, authz := range authzs {
		if authz.Status == acme.StatusValid {
			continue
		}
		chal := authz.ChallengeByType(acme.ChallengeHTTP01)
		if chal == nil {
			return fmt.Errorf("authorization %s has no http-01 challenge", authz.ID)
		}

		keyAuth := newOrder.KeyAuthorization(chal.Token)
		release, err := challenge.Present(responder, domain, *chal, keyAuth)
		if err != nil {
			return fmt.Errorf("presenting http-01 response: %w", err)
		}
		defer release()

		if _, err := newOrder.AnswerChallenge(*chal); err != nil {
			return fmt.Errorf("answering challenge: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		updated, err := newOrder.WaitForAuthorization(ctx, authz, order.DefaultPollPolicy)
		cancel()
		if err != nil {
			return fmt.Errorf("waiting for authorization of %s: %w", domain, err)
		}
		switch updated.Status {
		case acme.StatusValid:
			continue
		case acme.StatusInvalid, acme.StatusExpired, acme.StatusDeactivated, acme.StatusRevoked:
			return fmt.Errorf("authorization of %s failed with status %q", domain, updated.Status)
		default:
			return fmt.Errorf("authorization of %s ended in unexpected status %q", domain, updated.Status)
		}
	}
	return nil
}
