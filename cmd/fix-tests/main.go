// fix-tests rewrites the expected output of failing compiler fixtures with
// the SQL the compiler actually produced.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	defaultPackage = "./schema"
	fixtureTest    = "TestCompileFixtures/"
)

type TestEvent struct {
	Time    string `json:"Time"`
	Action  string `json:"Action"`
	Package string `json:"Package"`
	Test    string `json:"Test"`
	Output  string `json:"Output"`
}

type TestFailure struct {
	TestName string
	YamlFile string
	Expected string
	Actual   string
}

// TestCase holds only the fixture keys needed to locate a test.
type TestCase struct {
	Definition string  `yaml:"definition,omitempty"`
	Output     *string `yaml:"output,omitempty"`
}

var (
	expectedRegex = regexp.MustCompile(`expected: "((?:[^"\\]|\\.)*)"`)
	actualRegex   = regexp.MustCompile(`actual  : "((?:[^"\\]|\\.)*)"`)
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run takes an optional package directory and an optional file holding
// `go test -json` output. Without a file the tests are run.
func run(args []string) error {
	pkg := defaultPackage
	var resultsFile string
	for _, arg := range args {
		if strings.HasSuffix(arg, ".json") {
			resultsFile = arg
		} else if arg != "" {
			pkg = arg
		}
	}

	var testOutput []byte
	var err error
	if resultsFile != "" {
		testOutput, err = os.ReadFile(resultsFile)
		if err != nil {
			return fmt.Errorf("failed to read test results file: %w", err)
		}
	} else {
		testOutput, err = runTests(pkg)
		if err != nil {
			return fmt.Errorf("failed to run tests: %w", err)
		}
	}

	failures := parseTestResults(testOutput, filepath.Join(pkg, "testdata"))
	fmt.Printf("Found %d failing fixtures\n", len(failures))

	categories := categorizeFailures(failures)
	fmt.Println("\n=== Failure Categories ===")
	for category, count := range categories {
		fmt.Printf("  %s: %d\n", category, count)
	}

	fixed := 0
	for _, failure := range failures {
		if err := fixTest(failure); err != nil {
			log.Printf("Failed to fix test %s: %v", failure.TestName, err)
		} else {
			fixed++
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Total failures: %d\n", len(failures))
	fmt.Printf("Fixed: %d\n", fixed)
	fmt.Printf("Failed to fix: %d\n", len(failures)-fixed)
	return nil
}

func runTests(pkg string) ([]byte, error) {
	cmd := exec.Command("go", "test", pkg, "-run", strings.TrimSuffix(fixtureTest, "/"), "-json")
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Test failures are expected, only fatal if we can't run tests at all
		if len(output) == 0 {
			return nil, err
		}
	}
	return output, nil
}

func parseTestResults(output []byte, testdata string) []TestFailure {
	var failures []TestFailure
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	testOutputs := make(map[string]*strings.Builder)
	processedTests := make(map[string]bool)

	for scanner.Scan() {
		var event TestEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		if event.Test == "" || !strings.HasPrefix(event.Test, fixtureTest) || processedTests[event.Test] {
			continue
		}

		switch event.Action {
		case "run":
			testOutputs[event.Test] = &strings.Builder{}
		case "output":
			if buf, ok := testOutputs[event.Test]; ok {
				buf.WriteString(event.Output)
			}
		case "fail":
			processedTests[event.Test] = true
			if buf, ok := testOutputs[event.Test]; ok {
				if failure := parseTestFailure(event.Test, buf.String(), testdata); failure != nil {
					failures = append(failures, *failure)
				}
			}
		}
	}
	return failures
}

func parseTestFailure(testName, output, testdata string) *TestFailure {
	testCaseName := strings.TrimPrefix(testName, fixtureTest)

	expectedMatch := expectedRegex.FindStringSubmatch(output)
	actualMatch := actualRegex.FindStringSubmatch(output)
	if expectedMatch == nil || actualMatch == nil {
		return nil
	}

	yamlFile := findYamlFile(testCaseName, testdata)
	if yamlFile == "" {
		log.Printf("Could not find YAML file for test: %s", testCaseName)
		return nil
	}

	return &TestFailure{
		TestName: testCaseName,
		YamlFile: yamlFile,
		Expected: unescapeString(expectedMatch[1]),
		Actual:   unescapeString(actualMatch[1]),
	}
}

func unescapeString(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\"`, `"`)
	return s
}

func findYamlFile(testName, testdata string) string {
	matches, err := filepath.Glob(filepath.Join(testdata, "*.yml"))
	if err != nil {
		return ""
	}

	for _, yamlFile := range matches {
		data, err := os.ReadFile(yamlFile)
		if err != nil {
			continue
		}
		var tests map[string]TestCase
		if err := yaml.Unmarshal(data, &tests); err != nil {
			continue
		}
		if _, exists := tests[testName]; exists {
			return yamlFile
		}
	}
	return ""
}

func fixTest(failure TestFailure) error {
	data, err := os.ReadFile(failure.YamlFile)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	var tests map[string]TestCase
	if err := yaml.Unmarshal(data, &tests); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	test, exists := tests[failure.TestName]
	if !exists {
		return fmt.Errorf("test %s not found in YAML file", failure.TestName)
	}
	if test.Output == nil {
		return fmt.Errorf("test %s has no output to update", failure.TestName)
	}

	if err := updateYamlFile(failure.YamlFile, failure.TestName, "output", failure.Actual); err != nil {
		return fmt.Errorf("failed to update YAML file: %w", err)
	}
	fmt.Printf("Fixed test: %s in %s\n", failure.TestName, filepath.Base(failure.YamlFile))
	return nil
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// updateYamlFile replaces the block scalar of field inside testName, leaving
// every other line of the file untouched.
func updateYamlFile(filename, testName, field, newValue string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	var result []string
	inTest := false
	testIndent := 0
	replaced := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == testName+":" {
			inTest = true
			testIndent = indentOf(line)
			result = append(result, line)
			continue
		}

		if inTest && trimmed != "" && indentOf(line) <= testIndent {
			inTest = false
		}

		if inTest && !replaced && strings.HasPrefix(trimmed, field+": |") {
			fieldIndent := indentOf(line)
			result = append(result, line)
			for vline := range strings.SplitSeq(strings.TrimSuffix(newValue, "\n"), "\n") {
				if vline == "" {
					result = append(result, "")
				} else {
					result = append(result, strings.Repeat(" ", fieldIndent+2)+vline)
				}
			}

			// Skip the old block: blank lines and anything indented deeper
			// than the field.
			for i+1 < len(lines) {
				next := lines[i+1]
				if strings.TrimSpace(next) != "" && indentOf(next) <= fieldIndent {
					break
				}
				i++
			}
			replaced = true
			continue
		}

		result = append(result, line)
	}

	if !replaced {
		return fmt.Errorf("no %s block in test %s", field, testName)
	}
	return os.WriteFile(filename, []byte(strings.Join(result, "\n")), 0o644)
}

func categorizeFailures(failures []TestFailure) map[string]int {
	categories := make(map[string]int)
	for _, failure := range failures {
		categories[categorizeFailure(failure)]++
	}
	return categories
}

func categorizeFailure(failure TestFailure) string {
	exp := failure.Expected
	act := failure.Actual

	if strings.Count(exp, "CREATE TRIGGER") != strings.Count(act, "CREATE TRIGGER") {
		return "Trigger count differences"
	}
	if strings.Count(exp, "CREATE TABLE") != strings.Count(act, "CREATE TABLE") {
		return "Shadow table differences"
	}

	expLines := strings.Split(exp, "\n")
	actLines := strings.Split(act, "\n")
	if len(expLines) == len(actLines) {
		expSet := make(map[string]bool)
		for _, line := range expLines {
			expSet[strings.TrimSpace(line)] = true
		}
		allMatch := true
		for _, line := range actLines {
			if !expSet[strings.TrimSpace(line)] {
				allMatch = false
				break
			}
		}
		if allMatch {
			return "Column ordering differences"
		}
	}

	if containsDifferentQuoting(exp, act) {
		return "Quote differences"
	}
	return "Other"
}

func containsDifferentQuoting(s1, s2 string) bool {
	strip := strings.NewReplacer(`"`, "", "`", "")
	unquoted1 := strip.Replace(s1)
	unquoted2 := strip.Replace(s2)
	return unquoted1 == unquoted2 && s1 != s2
}
