package env_test

import (
	"audio-separator-worker/src/lib/env"
	"os"

	. "github.com/onsi/gomega"

	. "github.com/onsi/ginkgo"
)

var _ = Describe("Environment", func() {
	var originalValue string

	BeforeEach(func() {
		originalValue = os.Getenv("ENVIRONMENT")
	})

	AfterEach(func() {
		err := os.Setenv("ENVIRONMENT", originalValue)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reads production", func() {
		err := os.Setenv("ENVIRONMENT", "production")
		Expect(err).NotTo(HaveOccurred())

		Expect(env.Get()).To(Equal(env.Production))
	})

	It("reads development", func() {
		err := os.Setenv("ENVIRONMENT", "development")
		Expect(err).NotTo(HaveOccurred())

		Expect(env.Get()).To(Equal(env.Development))
	})

	It("defaults to development when unset", func() {
		err := os.Unsetenv("ENVIRONMENT")
		Expect(err).NotTo(HaveOccurred())

		Expect(env.Get()).To(Equal(env.Development))
	})

	It("rejects anything else", func() {
		err := os.Setenv("ENVIRONMENT", "staging")
		Expect(err).NotTo(HaveOccurred())

		Expect(func() { env.Get() }).To(Panic())
	})
})
