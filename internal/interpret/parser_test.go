package interpret

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	var (
		parser *Parser
		text   string
		mode   Mode
		result ParsedReceipt
	)

	BeforeEach(func() {
		parser = NewParser(DefaultConfig())
		mode = LineMode
	})

	JustBeforeEach(func() {
		result = parser.Parse(text, mode)
	})

	When("an English total uses dot grouping and a decimal comma", func() {
		BeforeEach(func() {
			text = "Total 1.234,56"
		})

		It("reads the comma as the decimal point", func() {
			Expect(*result.Total).To(Equal("1234.56 €"))
		})
	})

	When("the amount comes before the total keyword", func() {
		BeforeEach(func() {
			text = "EUR 45.00 Total"
		})

		It("finds the total", func() {
			Expect(result.Total).NotTo(BeNil())
			Expect(*result.Total).To(Equal("45.00 €"))
		})
	})

	When("the text has a single total line", func() {
		BeforeEach(func() {
			text = "Total: 45.00 EUR"
		})

		It("returns the total with its currency", func() {
			Expect(result.Total).NotTo(BeNil())
			Expect(*result.Total).To(Equal("45.00 EUR"))
		})

		It("tags the parser version", func() {
			Expect(result.Version).To(Equal(Version))
		})

		It("does not list the total as an item", func() {
			Expect(result.Items).To(BeEmpty())
		})
	})

	When("only net and VAT lines are present", func() {
		BeforeEach(func() {
			text = "Osnova za DDV 40.00\nSkupaj DDV 8.00"
		})

		It("reconstructs the total", func() {
			Expect(result.Total).NotTo(BeNil())
			Expect(*result.Total).To(Equal("48.00 €"))
		})
	})

	When("a VAT recap row is larger than the keyword candidate", func() {
		BeforeEach(func() {
			text = "Kava 2,50\nZA PLAČILO 4,00\nStopnja Osnova DDV\n22% 40,00 8,80"
		})

		It("prefers the reconstruction", func() {
			Expect(*result.Total).To(Equal("48.80 €"))
		})
	})

	When("the fallback is smaller and outside tolerance", func() {
		BeforeEach(func() {
			text = "Net 40.00\nVAT 8.00\nTotal 60.00 USD"
		})

		It("keeps the keyword candidate", func() {
			Expect(*result.Total).To(Equal("60.00 USD"))
		})
	})

	When("the fallback preference is configured off", func() {
		BeforeEach(func() {
			cfg := DefaultConfig()
			cfg.PreferLargerFallback = false
			parser = NewParser(cfg)
			text = "Net 40.00\nVAT 8.00\nTotal 8.00"
		})

		It("keeps the candidate", func() {
			Expect(*result.Total).To(Equal("8.00 €"))
		})
	})

	When("the receipt has items with a currency-marked total", func() {
		BeforeEach(func() {
			text = "Coffee 2.50\nBagel 3.20\nCoffee 2.50\nDate 17.10.2026\nTotal 8.20 USD"
		})

		It("prices items in the total's currency", func() {
			Expect(result.Items).To(Equal([]LineItem{
				{Name: "Coffee", Price: "2.50 USD"},
				{Name: "Bagel", Price: "3.20 USD"},
			}))
		})

		It("extracts the date", func() {
			Expect(result.Date).NotTo(BeNil())
			Expect(*result.Date).To(Equal("2026-10-17"))
		})
	})

	When("no currency is present anywhere", func() {
		BeforeEach(func() {
			text = "Coffee 2.50"
		})

		It("uses the default currency for items", func() {
			Expect(result.Items).To(Equal([]LineItem{{Name: "Coffee", Price: "2.50 €"}}))
			Expect(result.Total).To(BeNil())
		})
	})

	When("flat mode is selected", func() {
		BeforeEach(func() {
			mode = FlatMode
			text = "SHOP Mleko 1,20 Kruh 2,10 Kartica 3,30 SKUPAJ 3,30 EUR Datum 05.03.24"
		})

		It("extracts items across the whole text", func() {
			Expect(result.Items).To(Equal([]LineItem{
				{Name: "SHOP Mleko", Price: "1.20 EUR"},
				{Name: "Kruh", Price: "2.10 EUR"},
			}))
		})

		It("extracts total and date", func() {
			Expect(*result.Total).To(Equal("3.30 EUR"))
			Expect(*result.Date).To(Equal("2024-03-05"))
		})
	})

	DescribeTable("never fails",
		func(input string) {
			var r ParsedReceipt
			Expect(func() { r = parser.Parse(input, LineMode) }).NotTo(Panic())
			Expect(r.Version).To(Equal(Version))
			Expect(r.Items).NotTo(BeNil())
			Expect(func() { r = parser.Parse(input, FlatMode) }).NotTo(Panic())
			Expect(r.Items).NotTo(BeNil())
		},
		Entry("empty", ""),
		Entry("no digits", "Thank you for shopping with us"),
		Entry("binary garbage", "\x00\xff\xfe\x01%%%€€€\n\n\t"),
		Entry("only separators", "...,,,---///"),
		Entry("keyword at end", "Total"),
		Entry("huge number", "Total 99999999999999999999999999999999999999.99"),
		Entry("multibyte window edges", strings.Repeat("ž", 100)+" 1,00"),
	)

	It("encodes absent fields as missing and items as an array", func() {
		b, err := json.Marshal(parser.Parse("", LineMode))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"version":"` + Version + `","items":[]}`))
	})
})

var _ = Describe("Parser.Prepare", func() {
	var parser *Parser

	BeforeEach(func() {
		parser = NewParser(DefaultConfig())
	})

	It("joins pages in order with markers", func() {
		text := parser.Prepare([]string{"Shop\nMain street", "Total:\n2.50"}, LineMode)
		Expect(text).To(Equal("--- Page 1 ---\nShop\nMain street\n\n--- Page 2 ---\nTotal: 2.50"))
	})

	It("leaves a single page unmarked", func() {
		Expect(parser.Prepare([]string{"Coffee\n2.50"}, LineMode)).To(Equal("Coffee 2.50"))
	})

	It("does not merge continuation lines by default", func() {
		page := "Service\nMonthly maintenance 120.00"
		Expect(parser.Prepare([]string{page}, LineMode)).To(Equal(page))
	})

	It("merges continuation lines in line mode only when enabled", func() {
		cfg := DefaultConfig()
		cfg.MergeContinuations = true
		merging := NewParser(cfg)
		page := "Service\nMonthly maintenance 120.00"
		Expect(merging.Prepare([]string{page}, LineMode)).To(Equal("Service Monthly maintenance 120.00"))
		Expect(merging.Prepare([]string{page}, FlatMode)).To(Equal(page))
	})

	It("keeps cheap consecutive items apart", func() {
		r := parser.ParsePages([]string{"Coffee 2.50\nTea 1.80\nBagel 3.20\nTotal 7.50"}, LineMode)
		Expect(r.Items).To(Equal([]LineItem{
			{Name: "Coffee", Price: "2.50 €"},
			{Name: "Tea", Price: "1.80 €"},
			{Name: "Bagel", Price: "3.20 €"},
		}))
		Expect(*r.Total).To(Equal("7.50 €"))
	})

	It("parses prepared pages end to end", func() {
		r := parser.ParsePages([]string{
			"TRGOVINA d.o.o.\nDatum: 05.03.2024\nKava\n2,50",
			"Osnova za DDV 40,00\nDDV 22% 8,80\nZA PLAČILO:\n48,80 EUR",
		}, LineMode)
		Expect(*r.Date).To(Equal("2024-03-05"))
		Expect(*r.Total).To(Equal("48.80 EUR"))
		Expect(r.Items).To(ContainElement(LineItem{Name: "Kava", Price: "2.50 EUR"}))
	})
})

var _ = Describe("ParseMode", func() {
	It("reads known modes", func() {
		Expect(ParseMode("")).To(Equal(LineMode))
		Expect(ParseMode("Flat")).To(Equal(FlatMode))
		Expect(ParseMode("line")).To(Equal(LineMode))
	})

	It("rejects unknown modes", func() {
		_, err := ParseMode("columns")
		Expect(err).To(HaveOccurred())
	})
})
