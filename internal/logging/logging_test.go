package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpalmerr/sitepulse/internal/logging"
)

var _ = Describe("Logging", func() {
	Describe("ParseLevel", func() {
		DescribeTable("should map level names",
			func(in string, want slog.Level) {
				Expect(logging.ParseLevel(in)).To(Equal(want))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("info", "info", slog.LevelInfo),
			Entry("warn", "warn", slog.LevelWarn),
			Entry("warning", "WARNING", slog.LevelWarn),
			Entry("error", "Error", slog.LevelError),
			Entry("unknown defaults to info", "verbose", slog.LevelInfo),
			Entry("empty defaults to info", "", slog.LevelInfo),
		)
	})

	Describe("New", func() {
		It("should respect the level", func() {
			log, closer, err := logging.New(logging.Options{Level: "warn", Output: &bytes.Buffer{}})
			Expect(err).NotTo(HaveOccurred())
			defer closer.Close()

			Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeFalse())
			Expect(log.Enabled(context.Background(), slog.LevelWarn)).To(BeTrue())
		})

		It("should write JSON when asked", func() {
			var buf bytes.Buffer
			log, closer, err := logging.New(logging.Options{Format: "json", Output: &buf})
			Expect(err).NotTo(HaveOccurred())
			defer closer.Close()

			log.Info("sweep complete", "sweep_id", "abc")

			var line map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &line)).To(Succeed())
			Expect(line).To(HaveKeyWithValue("msg", "sweep complete"))
			Expect(line).To(HaveKeyWithValue("sweep_id", "abc"))
		})

		It("should write text by default", func() {
			var buf bytes.Buffer
			log, closer, err := logging.New(logging.Options{Output: &buf})
			Expect(err).NotTo(HaveOccurred())
			defer closer.Close()

			log.Info("hello", "url", "http://a")
			Expect(buf.String()).To(ContainSubstring("msg=hello"))
			Expect(buf.String()).To(ContainSubstring("url=http://a"))
		})

		It("should copy output to a rotated file", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "logs", "sitepulse.log")

			var buf bytes.Buffer
			log, closer, err := logging.New(logging.Options{File: path, Output: &buf})
			Expect(err).NotTo(HaveOccurred())

			log.Info("to file")
			Expect(closer.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("to file"))
			Expect(buf.String()).To(ContainSubstring("to file"))
		})
	})

	Describe("Discard", func() {
		It("should return a usable logger", func() {
			log := logging.Discard()
			Expect(log).NotTo(BeNil())
			Expect(func() { log.Error("ignored") }).NotTo(Panic())
		})
	})
})
