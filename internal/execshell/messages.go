package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	joinSeparatorConstant                   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitRevParseSubcommandNameConstant     = "rev-parse"
	gitWorkTreeFlagConstant               = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant              = "--abbrev-ref"
	gitSymbolicFullNameFlagConstant       = "--symbolic-full-name"
	gitUpstreamReferenceConstant          = "@{u}"
	gitHeadReferenceConstant              = "HEAD"
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
	gitStatusSubcommandNameConstant       = "status"
	gitLSRemoteSubcommandNameConstant     = "ls-remote"
	gitHeadsFlagConstant                  = "--heads"
	gitRevListSubcommandNameConstant      = "rev-list"
	gitLeftRightFlagConstant              = "--left-right"
	gitLogSubcommandNameConstant          = "log"
)

const (
	gitWorkTreeStartTemplateConstant                  = "Analyzing repository at %s"
	gitWorkTreeSuccessTemplateConstant                = "%s is a Git repository"
	gitWorkTreeFailureTemplateConstant                = "Could not confirm %s is a Git repository (exit code %d%s)"
	gitWorkTreeExecutionFailureTemplateConstant       = "Could not analyze %s: %s"
	gitCurrentBranchStartTemplateConstant             = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant           = "Current branch in %s is %s"
	gitCurrentBranchDetachedSuccessTemplateConstant   = "%s is in a detached HEAD state"
	gitCurrentBranchFailureTemplateConstant           = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant  = "Unable to identify current branch in %s: %s"
	gitUpstreamBranchStartTemplateConstant            = "Checking upstream branch configuration in %s"
	gitUpstreamBranchSuccessTemplateConstant          = "Upstream branch in %s is %s"
	gitUpstreamBranchMissingSuccessTemplateConstant   = "No upstream branch configured in %s"
	gitUpstreamBranchFailureTemplateConstant          = "Failed to check upstream branch configuration in %s (exit code %d%s)"
	gitUpstreamBranchExecutionFailureTemplateConstant = "Unable to check upstream branch configuration in %s: %s"
	gitRevisionStartTemplateConstant                  = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant                = "%s in %s resolved to %s"
	gitRevisionEmptySuccessTemplateConstant           = "%s in %s did not resolve to a revision"
	gitRevisionFailureTemplateConstant                = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant       = "Unable to resolve %s in %s: %s"
	gitRemoteLookupStartTemplateConstant              = "Checking %s remote for %s"
	gitRemoteLookupSuccessTemplateConstant            = "%s remote for %s points to %s"
	gitRemoteLookupFailureTemplateConstant            = "Failed to read %s remote for %s (exit code %d%s)"
	gitRemoteLookupExecutionFailureTemplateConstant   = "Unable to read %s remote for %s: %s"
	gitStatusStartTemplateConstant                    = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                  = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                  = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant         = "Unable to review working tree status in %s: %s"
	gitLSRemoteHeadsStartTemplateConstant             = "Listing branches on %s from %s"
	gitLSRemoteHeadsSuccessTemplateConstant           = "Listed branches on %s from %s"
	gitLSRemoteHeadsFailureTemplateConstant           = "Failed to list branches on %s from %s (exit code %d%s)"
	gitLSRemoteHeadsExecutionFailureTemplateConstant  = "Unable to list branches on %s from %s: %s"
	gitLSRemoteStartTemplateConstant                  = "Querying remote references on %s from %s"
	gitLSRemoteSuccessTemplateConstant                = "Queried remote references on %s from %s"
	gitLSRemoteFailureTemplateConstant                = "Failed to query remote references on %s from %s (exit code %d%s)"
	gitLSRemoteExecutionFailureTemplateConstant       = "Unable to query remote references on %s from %s: %s"
	gitRevListCountStartTemplateConstant              = "Counting commits between %s in %s"
	gitRevListCountSuccessTemplateConstant            = "Counted commits between %s in %s"
	gitRevListCountFailureTemplateConstant            = "Failed to count commits between %s in %s (exit code %d%s)"
	gitRevListCountExecutionFailureTemplateConstant   = "Unable to count commits between %s in %s: %s"
	gitLastCommitStartTemplateConstant                = "Reading latest commit in %s"
	gitLastCommitSuccessTemplateConstant              = "Read latest commit in %s"
	gitLastCommitFailureTemplateConstant              = "Failed to read latest commit in %s (exit code %d%s)"
	gitLastCommitExecutionFailureTemplateConstant     = "Unable to read latest commit in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitRemoteSubcommandNameConstant:
		return formatter.describeGitRemoteMessage(command, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeGitStatusMessage(command, result, failure, stage)
	case gitLSRemoteSubcommandNameConstant:
		return formatter.describeGitLSRemoteMessage(command, result, failure, stage)
	case gitRevListSubcommandNameConstant:
		return formatter.describeGitRevListMessage(command, result, failure, stage)
	case gitLogSubcommandNameConstant:
		return formatter.describeGitLogMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	if containsArgument(arguments, gitWorkTreeFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitWorkTreeStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitWorkTreeSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitWorkTreeFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitWorkTreeExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	if containsArgument(arguments, gitAbbrevRefFlagConstant) {
		if containsArgument(arguments, gitSymbolicFullNameFlagConstant) && containsArgument(arguments, gitUpstreamReferenceConstant) {
			switch stage {
			case messageStageStart:
				return fmt.Sprintf(gitUpstreamBranchStartTemplateConstant, workingDirectory)
			case messageStageSuccess:
				trimmed := strings.TrimSpace(result.StandardOutput)
				if len(trimmed) == 0 {
					return fmt.Sprintf(gitUpstreamBranchMissingSuccessTemplateConstant, workingDirectory)
				}
				return fmt.Sprintf(gitUpstreamBranchSuccessTemplateConstant, workingDirectory, trimmed)
			case messageStageFailure:
				return fmt.Sprintf(gitUpstreamBranchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
			case messageStageExecutionFailure:
				return fmt.Sprintf(gitUpstreamBranchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
			}
		}

		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCurrentBranchStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			trimmed := strings.TrimSpace(result.StandardOutput)
			if strings.EqualFold(trimmed, gitHeadReferenceConstant) || len(trimmed) == 0 {
				return fmt.Sprintf(gitCurrentBranchDetachedSuccessTemplateConstant, workingDirectory)
			}
			return fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, trimmed)
		case messageStageFailure:
			return fmt.Sprintf(gitCurrentBranchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitCurrentBranchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	reference := formatter.resolveRevisionReference(arguments)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, trimmed)
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	if len(arguments) > 1 && strings.TrimSpace(arguments[1]) == gitRemoteGetURLSubcommandNameConstant {
		remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitRemoteLookupStartTemplateConstant, remoteName, workingDirectory)
		case messageStageSuccess:
			remoteURL := formatter.ensureValue(strings.TrimSpace(result.StandardOutput))
			return fmt.Sprintf(gitRemoteLookupSuccessTemplateConstant, remoteName, workingDirectory, remoteURL)
		case messageStageFailure:
			return fmt.Sprintf(gitRemoteLookupFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitRemoteLookupExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
		}
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitStatusMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitLSRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	arguments := command.Details.Arguments
	remoteName := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
	listsHeads := containsArgument(arguments, gitHeadsFlagConstant)

	switch stage {
	case messageStageStart:
		if listsHeads {
			return fmt.Sprintf(gitLSRemoteHeadsStartTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitLSRemoteStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		if listsHeads {
			return fmt.Sprintf(gitLSRemoteHeadsSuccessTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitLSRemoteSuccessTemplateConstant, remoteName, workingDirectory)
	case messageStageFailure:
		if listsHeads {
			return fmt.Sprintf(gitLSRemoteHeadsFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitLSRemoteFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		if listsHeads {
			return fmt.Sprintf(gitLSRemoteHeadsExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
		}
		return fmt.Sprintf(gitLSRemoteExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevListMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if !containsArgument(arguments, gitLeftRightFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	revisionRange := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevListCountStartTemplateConstant, revisionRange, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRevListCountSuccessTemplateConstant, revisionRange, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitRevListCountFailureTemplateConstant, revisionRange, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRevListCountExecutionFailureTemplateConstant, revisionRange, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitLogMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitLastCommitStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitLastCommitSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitLastCommitFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitLastCommitExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, joinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) resolveRevisionReference(arguments []string) string {
	if len(arguments) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	lastArgument := strings.TrimSpace(arguments[len(arguments)-1])
	if len(lastArgument) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return lastArgument
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}
