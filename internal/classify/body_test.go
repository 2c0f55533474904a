package classify

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StripSignature", func() {
	It("cuts at a bare -- separator", func() {
		text := "Total: 45.00\n--\nJane Doe\nTax Invoice Specialist"
		Expect(StripSignature(text)).To(Equal("Total: 45.00"))
	})

	It("cuts at a closing phrase", func() {
		text := "Your invoice is attached.\nThanks,\nJane"
		Expect(StripSignature(text)).To(Equal("Your invoice is attached."))
	})

	It("cuts at sent-from-my footers", func() {
		text := "Order total 12.00\nSent from my iPhone"
		Expect(StripSignature(text)).To(Equal("Order total 12.00"))
	})

	It("returns the text unchanged when no closer is present", func() {
		text := "Line one\nLine two"
		Expect(StripSignature(text)).To(Equal(text))
	})
})

var _ = Describe("LooksLikeReceipt", func() {
	var (
		subject string
		text    string
		html    string
		matched bool
	)

	BeforeEach(func() {
		subject = ""
		text = ""
		html = ""
	})

	JustBeforeEach(func() {
		matched = LooksLikeReceipt(subject, text, html)
	})

	When("the body has two distinct keywords", func() {
		BeforeEach(func() {
			subject = "Tax Invoice INV-2041"
			text = "Total: R450.00\nThank you for shopping with us"
		})

		It("returns true", func() {
			Expect(matched).To(BeTrue())
		})
	})

	When("the body has exactly one keyword", func() {
		BeforeEach(func() {
			subject = "Your delivery"
			text = "Your order confirmation number is 88123. The driver is on the way."
		})

		It("returns false", func() {
			Expect(matched).To(BeFalse())
		})
	})

	When("keywords only appear inside the signature", func() {
		BeforeEach(func() {
			subject = "Lunch on Friday?"
			text = "See you at noon.\nRegards,\nJane\nInvoice queries: billing@acme.example\nProof of payment requests welcome"
		})

		It("returns false", func() {
			Expect(matched).To(BeFalse())
		})
	})

	When("only an HTML body is available", func() {
		BeforeEach(func() {
			subject = "Payment confirmation"
			html = "<html><body><style>p{color:red}</style><p>Receipt for your purchase. Total: &pound;12.50</p></body></html>"
		})

		It("strips tags and scores the text", func() {
			Expect(matched).To(BeTrue())
		})
	})

	When("the email is empty", func() {
		It("returns false", func() {
			Expect(matched).To(BeFalse())
		})
	})
})

var _ = Describe("RuleCategorizer", func() {
	It("matches a category from the store name", func() {
		category, err := RuleCategorizer{}.Categorize(context.Background(), "Corner Pharmacy", nil, "45.00")
		Expect(err).NotTo(HaveOccurred())
		Expect(category).To(Equal("health"))
	})

	It("matches a category from line items", func() {
		category, err := RuleCategorizer{}.Categorize(context.Background(), "Acme", []string{"printer toner"}, "300.00")
		Expect(err).NotTo(HaveOccurred())
		Expect(category).To(Equal("office"))
	})

	It("defaults to other", func() {
		category, err := RuleCategorizer{}.Categorize(context.Background(), "Mystery Shop", nil, "1.00")
		Expect(err).NotTo(HaveOccurred())
		Expect(category).To(Equal(DefaultCategory))
	})
})
