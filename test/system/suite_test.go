//go:build system

package system

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samvad-hq/zosmf-probe/internal/testenv"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
	"github.com/samvad-hq/zosmf-probe/pkg/zosmf"
)

var (
	env           *testenv.Environment
	realSession   *session.Session
	defaultSystem testenv.SystemSchema
	checker       *zosmf.CheckStatus
	ctx           context.Context
)

var _ = BeforeSuite(func() {
	var err error
	env, err = testenv.SetUp(testenv.Options{
		TestName:         "get_zosmf_info",
		TempProfileTypes: []string{testenv.ProfileTypeZosmf},
	})
	if errors.Is(err, testenv.ErrNoProperties) {
		Skip("no system test properties: " + err.Error())
	}
	Expect(err).NotTo(HaveOccurred())

	defaultSystem, err = env.SystemTestProperties.DefaultSystem()
	Expect(err).NotTo(HaveOccurred())

	realSession, err = testenv.CreateZosmfSession(env)
	Expect(err).NotTo(HaveOccurred())

	checker = zosmf.NewCheckStatus(zosmf.WithTimeout(30 * time.Second))
})

var _ = AfterSuite(func() {
	Expect(testenv.CleanUp(env)).To(Succeed())
})

var _ = BeforeEach(func() {
	ctx = context.Background()
})

func TestSystem(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "z/OSMF System Suite")
}
