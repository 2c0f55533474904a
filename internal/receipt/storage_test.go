package receipt

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("writes the blob and returns its pointer", func() {
			path, err := storage.Save("r1_receipt.jpg", []byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("r1_receipt.jpg"))
			Expect(filepath.Join(tmpDir, path)).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("reads back saved bytes", func() {
			path, err := storage.Save("r1_receipt.jpg", []byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("image bytes")))
		})

		It("errors for a missing blob", func() {
			_, err := storage.Get("missing.png")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes the blob", func() {
			path, err := storage.Save("r1_receipt.jpg", []byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete(path)).To(Succeed())
			Expect(filepath.Join(tmpDir, path)).NotTo(BeAnExistingFile())
		})
	})
})
