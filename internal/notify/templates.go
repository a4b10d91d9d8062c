package notify

import "fmt"

// TenantProvisionedSubject is the subject line of the internal
// provisioning notification
func TenantProvisionedSubject(customerName string) string {
	return fmt.Sprintf("Activation Details for New Tenant: %s", customerName)
}

// TenantProvisionedBody builds the internal provisioning notification
// sent to the technical manager. The activation link may be empty
// when admin creation or the link fetch failed.
func TenantProvisionedBody(customerName, planName, adminEmail, dashboardURL, activationLink string) string {
	activationItem := `<li><b>Activation Link:</b> Not available. (User creation failed or link fetch error. Check server logs.)</li>`
	if activationLink != "" {
		activationItem = fmt.Sprintf(`<li><b>Activation Link:</b> <a href="%s">Click here to set password</a></li>`, activationLink)
	}

	return fmt.Sprintf(`<html>
    <body>
        <h2>New Tenant Provisioned</h2>
        <p><b>Customer Name:</b> %s</p>
        <p><b>Plan:</b> %s</p>
        <p><b>Tenant Admin Email:</b> %s</p>
        <br>
        <p>Please use the following link to activate the Tenant Admin account and set the password:</p>
        <ul>
            <li><b>Dashboard URL:</b> <a href="%s">%s</a></li>
            %s
        </ul>
        <br>
        <p>This is an internal notification. The customer has NOT been emailed.</p>
    </body>
</html>`, customerName, planName, adminEmail, dashboardURL, dashboardURL, activationItem)
}

// TaskInProgressSubject is the customer notification subject for a
// task moving to In Progress
func TaskInProgressSubject(taskTitle string) string {
	return fmt.Sprintf("Working on your task: %s", taskTitle)
}

// TaskInProgressBody builds the customer notification for a task
// moving to In Progress
func TaskInProgressBody(taskTitle, projectName string) string {
	return fmt.Sprintf(`<h3>Task Update</h3>
<p>We're pleased to let you know that your task <b>%s</b> for project <b>%s</b> is now being worked on.</p>
<p>We appreciate your patience and will notify you as soon as it's completed.</p>`, taskTitle, projectName)
}

// TaskCompletedSubject is the customer notification subject for a
// completed task
func TaskCompletedSubject(taskTitle string) string {
	return fmt.Sprintf("Task Completed successfully: %s", taskTitle)
}

// TaskCompletedBody builds the customer notification for a completed
// task
func TaskCompletedBody(taskTitle, projectName string) string {
	return fmt.Sprintf(`<h3>Success!</h3>
<p>Your task <b>%s</b> for project <b>%s</b> has been completed.</p>
<p>Thank you for your continued partnership.</p>`, taskTitle, projectName)
}

// ProjectCompletedSubject is the internal notification subject for a
// fully completed project
func ProjectCompletedSubject(projectName string) string {
	return fmt.Sprintf("Project Completed: %s", projectName)
}

// ProjectCompletedBody builds the internal notification sent to the
// project manager and owners when every task is completed
func ProjectCompletedBody(projectName, managerEmail string) string {
	if managerEmail == "" {
		managerEmail = "N/A"
	}

	return fmt.Sprintf(`<h1>Project Completed</h1>
<p>The project <b>%s</b> has been completed.</p>
<p>All tasks have been marked as Completed.</p>
<p>Technical Manager: %s</p>`, projectName, managerEmail)
}
