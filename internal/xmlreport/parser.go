package xmlreport

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/temirov/testgate/internal/gate"
)

const (
	doctypeDirectivePrefixConstant = "DOCTYPE"
	missingReportMessageConstant   = "report file not found"
	malformedReportMessageConstant = "malformed XML report"
	emptyReportMessageConstant     = "XML report has no root element"
)

var errDoctypeForbidden = errors.New("DOCTYPE declarations are not allowed")

// Element is one node of a parsed XML document.
type Element struct {
	Name       string
	Attributes map[string]string
	Children   []*Element
	Text       string
}

// Attribute returns the named attribute value or the empty string.
func (element *Element) Attribute(name string) string {
	if element == nil {
		return ""
	}
	return element.Attributes[name]
}

// ChildrenNamed returns the direct children carrying the given local name.
func (element *Element) ChildrenNamed(name string) []*Element {
	if element == nil {
		return nil
	}
	var named []*Element
	for _, child := range element.Children {
		if child.Name == name {
			named = append(named, child)
		}
	}
	return named
}

// FirstChildNamed returns the first direct child with the given local name.
func (element *Element) FirstChildNamed(name string) *Element {
	for _, child := range element.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Parse reads the file and returns the document root. A missing file or
// malformed content is a processing error.
func Parse(path string) (*Element, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return nil, gate.NewProcessingError(missingReportMessageConstant, path, openError)
	}
	defer file.Close()

	root, parseError := decodeDocument(file)
	if parseError != nil {
		return nil, gate.NewProcessingError(malformedReportMessageConstant, path, parseError)
	}
	if root == nil {
		return nil, gate.NewProcessingError(emptyReportMessageConstant, path, nil)
	}
	return root, nil
}

func decodeDocument(reader io.Reader) (*Element, error) {
	decoder := xml.NewDecoder(reader)
	decoder.Strict = true

	var root *Element
	var stack []*Element

	for {
		token, tokenError := decoder.Token()
		if tokenError == io.EOF {
			break
		}
		if tokenError != nil {
			return nil, tokenError
		}

		switch typedToken := token.(type) {
		case xml.Directive:
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(string(typedToken))), doctypeDirectivePrefixConstant) {
				return nil, errDoctypeForbidden
			}
		case xml.StartElement:
			element := &Element{Name: typedToken.Name.Local, Attributes: map[string]string{}}
			for _, attribute := range typedToken.Attr {
				element.Attributes[attribute.Name.Local] = attribute.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New(malformedReportMessageConstant)
				}
				root = element
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, element)
			}
			stack = append(stack, element)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New(malformedReportMessageConstant)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(typedToken)
			}
		}
	}

	if len(stack) != 0 {
		return nil, errors.New(malformedReportMessageConstant)
	}
	return root, nil
}
