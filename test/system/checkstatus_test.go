//go:build system

package system

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
	"github.com/samvad-hq/zosmf-probe/pkg/zosmf"
)

var _ = Describe("Check Status API", func() {
	badSession := func(host string, port int, reject bool) *session.Session {
		sess, err := session.New(session.Session{
			User:               defaultSystem.Zosmf.User,
			Password:           defaultSystem.Zosmf.Pass,
			Hostname:           host,
			Port:               port,
			Type:               session.AuthBasic,
			RejectUnauthorized: reject,
		})
		Expect(err).NotTo(HaveOccurred())
		return sess
	}

	Context("Success scenarios", func() {
		It("should return with expected information", func() {
			resp, err := checker.GetZosmfInfo(ctx, realSession)

			Expect(err).NotTo(HaveOccurred())
			Expect(resp).NotTo(BeEmpty())
			Expect(resp).To(HaveKey("zosmf_version"))
			GinkgoWriter.Printf("z/OSMF version %s\n", resp.Version())
		})
	})

	Context("Failure scenarios", func() {
		It("should return with proper message for a missing session", func() {
			resp, err := checker.GetZosmfInfo(ctx, nil)

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(err.Error()).To(ContainSubstring(zosmf.ZosmfMessages.MissingSession.Message))
		})

		It("should return with proper message for invalid hostname", func() {
			const badHostName = "badHost"
			resp, err := checker.GetZosmfInfo(ctx, badSession(badHostName, defaultSystem.Zosmf.Port, defaultSystem.Zosmf.RejectUnauthorized))

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("Error: getaddrinfo ENOTFOUND " + badHostName))
		})

		It("should return with proper message for invalid port", func() {
			const badPort = 9999
			resp, err := checker.GetZosmfInfo(ctx, badSession(defaultSystem.Zosmf.Host, badPort, defaultSystem.Zosmf.RejectUnauthorized))

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("Error: connect ECONNREFUSED"))
			Expect(err.Error()).To(ContainSubstring(strconv.Itoa(badPort)))
		})

		It("should return with proper message for rejectUnauthorized = true", func() {
			resp, err := checker.GetZosmfInfo(ctx, badSession(defaultSystem.Zosmf.Host, defaultSystem.Zosmf.Port, true))

			Expect(err).To(HaveOccurred())
			Expect(resp).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("Error: self signed certificate in certificate chain"))
		})
	})
})
