package classify

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/snapfolio/receiptmail/internal/mailin/msg"
)

func TestClassify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Classify Suite")
}

func imageAttachment(filename string, size int) msg.Attachment {
	return msg.Attachment{
		Content:     make([]byte, size),
		ContentType: "image/jpeg",
		Filename:    filename,
		Size:        int64(size),
	}
}

var _ = Describe("Classify", func() {
	var (
		att     msg.Attachment
		verdict Verdict
	)

	JustBeforeEach(func() {
		verdict = Classify(att)
	})

	When("classifying a normal receipt photo", func() {
		BeforeEach(func() {
			att = imageAttachment("IMG_4021.jpg", 120*1024)
		})

		It("accepts it", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})

	When("classifying an image below the minimum size", func() {
		BeforeEach(func() {
			att = imageAttachment("receipt.jpg", 5*1024)
		})

		It("rejects it regardless of the receipt hint", func() {
			Expect(verdict.Accepted).To(BeFalse())
			Expect(verdict.Reason).To(ContainSubstring("too small"))
		})
	})

	When("classifying a tiny PDF named like a logo", func() {
		BeforeEach(func() {
			att = msg.Attachment{
				Content:     []byte("%PDF-1.7 tiny"),
				ContentType: "application/pdf",
				Filename:    "logo.pdf",
				Size:        13,
			}
		})

		It("accepts it anyway", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})

	When("classifying a PDF with a generic content type", func() {
		BeforeEach(func() {
			att = msg.Attachment{
				Content:     []byte("%PDF-1.4 ..."),
				ContentType: "application/octet-stream",
				Filename:    "doc.bin",
			}
		})

		It("sniffs the byte signature and accepts it", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})

	When("classifying an unsupported content type", func() {
		BeforeEach(func() {
			att = msg.Attachment{
				Content:     make([]byte, 200*1024),
				ContentType: "application/zip",
				Filename:    "archive.zip",
			}
		})

		It("rejects it", func() {
			Expect(verdict.Accepted).To(BeFalse())
			Expect(verdict.Reason).To(ContainSubstring("unsupported content type"))
		})
	})

	When("classifying an inline image below the inline threshold", func() {
		BeforeEach(func() {
			att = imageAttachment("photo.png", 40*1024)
			att.ContentType = "image/png"
			att.ContentID = "part1@mailer"
		})

		It("rejects it", func() {
			Expect(verdict.Accepted).To(BeFalse())
			Expect(verdict.Reason).To(ContainSubstring("inline"))
		})
	})

	When("classifying an inline image between the thresholds without a hint", func() {
		BeforeEach(func() {
			att = imageAttachment("photo.png", 70*1024)
			att.ContentID = "part1@mailer"
		})

		It("rejects it", func() {
			Expect(verdict.Accepted).To(BeFalse())
			Expect(verdict.Reason).To(ContainSubstring("without receipt hint"))
		})
	})

	When("classifying an inline image between the thresholds with a receipt hint", func() {
		BeforeEach(func() {
			att = imageAttachment("receipt-scan.png", 70*1024)
			att.ContentID = "part1@mailer"
		})

		It("accepts it", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})

	When("classifying a large inline image without a hint", func() {
		BeforeEach(func() {
			att = imageAttachment("photo.png", 300*1024)
			att.ContentID = "part1@mailer"
		})

		It("accepts it", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})

	When("classifying a decorative filename", func() {
		BeforeEach(func() {
			att = imageAttachment("company-logo.png", 150*1024)
		})

		It("rejects it", func() {
			Expect(verdict.Accepted).To(BeFalse())
			Expect(verdict.Reason).To(ContainSubstring("decorative"))
		})
	})

	When("classifying an auto-numbered client filename", func() {
		BeforeEach(func() {
			att = imageAttachment("image001.png", 150*1024)
		})

		It("rejects it", func() {
			Expect(verdict.Accepted).To(BeFalse())
		})
	})

	When("a decorative name also carries a receipt hint", func() {
		BeforeEach(func() {
			att = imageAttachment("signature-receipt.png", 150*1024)
		})

		It("accepts it, the hint wins", func() {
			Expect(verdict.Accepted).To(BeTrue())
		})
	})
})

var _ = Describe("Filter", func() {
	It("keeps arrival order and counts rejected signature images", func() {
		atts := []msg.Attachment{
			imageAttachment("logo.png", 150*1024),
			imageAttachment("receipt.jpg", 150*1024),
			imageAttachment("spacer.gif", 60*1024),
			{Content: make([]byte, 1024), ContentType: "application/zip", Filename: "junk.zip"},
			imageAttachment("IMG_2200.jpg", 90*1024),
		}

		accepted, rejectedSignatures := Filter(atts)

		Expect(accepted).To(HaveLen(2))
		Expect(accepted[0].Filename).To(Equal("receipt.jpg"))
		Expect(accepted[1].Filename).To(Equal("IMG_2200.jpg"))
		Expect(rejectedSignatures).To(Equal(2))
	})

	It("returns an empty slice for no attachments", func() {
		accepted, rejected := Filter(nil)
		Expect(accepted).To(BeEmpty())
		Expect(rejected).To(BeZero())
	})
})
