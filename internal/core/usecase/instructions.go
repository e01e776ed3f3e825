package usecase

import (
	"fmt"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

func buildURLInstruction(target string) string {
	return fmt.Sprintf(`Investigate the following URL for signs of piracy or unauthorized redistribution.
Consider the domain reputation, the hosting pattern and the likely original publisher.

URL: %s`, target)
}

func buildTextInstruction(name, text string) string {
	return fmt.Sprintf(`Analyze the following document content for plagiarism, leaked material or unauthorized copies.
Identify the probable original source and any distinctive passages.

File: %s

Content:
%s`, name, text)
}

func buildBinaryInstruction(name, mimeType string) string {
	return fmt.Sprintf(`Analyze the attached %s file %q for piracy indicators: watermarks, re-encoding artifacts,
cropping, logos, release-group tags and signs that it is an unauthorized copy of a known work.`, mimeType, name)
}

func buildMetadataInstruction(a domain.FileAsset) string {
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = "unknown"
	}
	return fmt.Sprintf(`The file content could not be inspected directly. Only its metadata is available.
Simulate the findings of a forensic piracy investigation from this metadata alone and list
the missing information in data_gaps.

File Name: %s
File Size: %d bytes
File Type: %s`, a.Name, a.Size, mimeType)
}
